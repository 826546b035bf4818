package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/repositories/folders"
)

// CreateFolder adds a folder under parentID, or at the root when nil. The
// parent must exist, so the tree cannot gain a cycle through creation.
func (s *Store) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is empty", common.ErrInvalidArgument)
	}

	f := &models.Folder{ID: common.NewID(), ParentID: parentID, Name: name}
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkFolder(ctx, tx, parentID); err != nil {
			return err
		}

		fr := folders.NewSQLiteRepository(tx)
		ord, err := fr.NextOrd(ctx, parentID)
		if err != nil {
			return err
		}
		f.Ord = ord
		return fr.Create(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	return folders.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

func (s *Store) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return folders.NewSQLiteRepository(s.db).List(ctx)
}

func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: folder name is empty", common.ErrInvalidArgument)
	}
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return folders.NewSQLiteRepository(tx).Rename(ctx, id, name)
	})
}

// MoveFolder re-parents a folder. Moving a folder under itself or one of
// its descendants fails with common.ErrInvalidArgument.
func (s *Store) MoveFolder(ctx context.Context, id string, parentID *string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		fr := folders.NewSQLiteRepository(tx)
		if _, err := fr.GetByID(ctx, id); err != nil {
			return err
		}

		for cur := parentID; cur != nil; {
			if *cur == id {
				return fmt.Errorf("%w: folder cannot be moved into itself", common.ErrInvalidArgument)
			}
			p, err := fr.GetByID(ctx, *cur)
			if err != nil {
				return fmt.Errorf("folder[%s]: %w", *cur, err)
			}
			cur = p.ParentID
		}

		return fr.SetParent(ctx, id, parentID)
	})
}

// DeleteFolder removes a folder. Its subfolders and documents move up to the
// deleted folder's parent.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		fr := folders.NewSQLiteRepository(tx)
		f, err := fr.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := fr.ReparentChildren(ctx, id, f.ParentID); err != nil {
			return err
		}
		if err := documents.NewSQLiteRepository(tx).MoveFolderContents(ctx, id, f.ParentID); err != nil {
			return err
		}
		return fr.Delete(ctx, id)
	})
}

// FolderTree returns the folder forest with per-folder document counts.
func (s *Store) FolderTree(ctx context.Context) ([]models.FolderNode, error) {
	list, err := folders.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := documents.NewSQLiteRepository(s.db).CountByFolder(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(list, counts), nil
}

func buildTree(list []models.Folder, counts map[string]int) []models.FolderNode {
	children := make(map[string][]models.Folder)
	var roots []models.Folder
	for _, f := range list {
		if f.ParentID == nil {
			roots = append(roots, f)
			continue
		}
		children[*f.ParentID] = append(children[*f.ParentID], f)
	}

	var build func(fs []models.Folder) []models.FolderNode
	build = func(fs []models.Folder) []models.FolderNode {
		nodes := make([]models.FolderNode, 0, len(fs))
		for _, f := range fs {
			nodes = append(nodes, models.FolderNode{
				Folder:    f,
				Documents: counts[f.ID],
				Children:  build(children[f.ID]),
			})
		}
		return nodes
	}
	return build(roots)
}
