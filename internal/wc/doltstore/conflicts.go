package doltstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/wc"
)

// RecordConflict stores a conflict descriptor for its local path, replacing
// any previous descriptor of the same kind (and property name).
func (s *Store) RecordConflict(ctx context.Context, desc types.Descriptor) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode conflict descriptor: %w", err)
	}
	return s.runInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			REPLACE INTO conflicts (local_path, kind, prop_name, descriptor)
			VALUES (?, ?, ?, ?)
		`, desc.LocalPath, string(desc.Kind), desc.PropertyName, payload)
		return err
	})
}

// RecordMove stores a move relationship from src to dst.
func (s *Store) RecordMove(ctx context.Context, src, dst string) error {
	return s.runInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`REPLACE INTO moves (src, dst) VALUES (?, ?)`, src, dst)
		return err
	})
}

// ConflictedPaths returns every path with at least one recorded conflict.
func (s *Store) ConflictedPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT local_path FROM conflicts ORDER BY local_path
	`)
	if err != nil {
		return nil, fmt.Errorf("list conflicted paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan conflicted path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *Store) ReadConflicts(ctx context.Context, localPath string) ([]types.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT descriptor FROM conflicts
		WHERE local_path = ?
		ORDER BY CASE kind
			WHEN 'text' THEN 0
			WHEN 'property' THEN 1
			ELSE 2
		END, prop_name
	`, localPath)
	if err != nil {
		return nil, fmt.Errorf("read conflicts for %q: %w", localPath, err)
	}
	defer rows.Close()

	var descs []types.Descriptor
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan conflict descriptor: %w", err)
		}
		var desc types.Descriptor
		if err := json.Unmarshal(payload, &desc); err != nil {
			return nil, fmt.Errorf("decode conflict descriptor for %q: %w", localPath, err)
		}
		descs = append(descs, desc)
	}
	return descs, rows.Err()
}

func (s *Store) AcquireWriteLock(ctx context.Context, localPath string) (string, error) {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		var held int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM wc_locks WHERE lock_path = ?`, localPath).Scan(&held)
		if err != nil {
			return err
		}
		if held > 0 {
			return fmt.Errorf("lock %q: %w", localPath, wc.ErrLockHeld)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO wc_locks (lock_path) VALUES (?)`, localPath)
		return err
	})
	if err != nil {
		return "", err
	}
	return localPath, nil
}

func (s *Store) ReleaseWriteLock(ctx context.Context, lockPath string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wc_locks WHERE lock_path = ?`, lockPath)
	if err != nil {
		return fmt.Errorf("release lock %q: %w", lockPath, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("release lock %q: %w", lockPath, wc.ErrNotLocked)
	}
	return nil
}

func (s *Store) MarkTextResolved(ctx context.Context, localPath string, choice types.LegacyChoice, notify wc.NotifyFunc) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM conflicts WHERE local_path = ? AND kind = ?
		`, localPath, string(types.KindText)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolutions (local_path, kind, prop_name, choice)
			VALUES (?, ?, '', ?)
		`, localPath, string(types.KindText), string(choice))
		return err
	})
	if err != nil {
		return fmt.Errorf("mark text conflict resolved on %q: %w", localPath, err)
	}
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) MarkPropResolved(ctx context.Context, localPath, propName string, choice types.LegacyChoice, notify wc.NotifyFunc) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		if propName == "" {
			// Resolve every conflicted property on the path, recording one
			// resolution row per property.
			rows, err := tx.QueryContext(ctx, `
				SELECT prop_name FROM conflicts
				WHERE local_path = ? AND kind = ?
				ORDER BY prop_name
			`, localPath, string(types.KindProperty))
			if err != nil {
				return err
			}
			var names []string
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					rows.Close()
					return err
				}
				names = append(names, name)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return err
			}
			rows.Close()

			for _, name := range names {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO resolutions (local_path, kind, prop_name, choice)
					VALUES (?, ?, ?, ?)
				`, localPath, string(types.KindProperty), name, string(choice)); err != nil {
					return err
				}
			}
			_, err = tx.ExecContext(ctx, `
				DELETE FROM conflicts WHERE local_path = ? AND kind = ?
			`, localPath, string(types.KindProperty))
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM conflicts
			WHERE local_path = ? AND kind = ? AND prop_name = ?
		`, localPath, string(types.KindProperty), propName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolutions (local_path, kind, prop_name, choice)
			VALUES (?, ?, ?, ?)
		`, localPath, string(types.KindProperty), propName, string(choice))
		return err
	})
	if err != nil {
		return fmt.Errorf("mark property conflict resolved on %q: %w", localPath, err)
	}
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) DeleteTreeConflict(ctx context.Context, localPath string) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM conflicts WHERE local_path = ? AND kind = ?
		`, localPath, string(types.KindTree))
		return err
	})
	if err != nil {
		return fmt.Errorf("delete tree conflict on %q: %w", localPath, err)
	}
	return nil
}

func (s *Store) BreakMovedAway(ctx context.Context, localPath string, _ wc.NotifyFunc) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM moves WHERE src = ?`, localPath)
		return err
	})
	if err != nil {
		return fmt.Errorf("break move from %q: %w", localPath, err)
	}
	return nil
}

func (s *Store) RaiseMovedAway(ctx context.Context, localPath string, notify wc.NotifyFunc) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		parent, err := s.readTreeDescriptor(ctx, tx, localPath)
		if err != nil {
			return err
		}

		// Children that were moved away inherit the parent's conflict as
		// individual moved-away tree conflicts.
		rows, err := tx.QueryContext(ctx, `
			SELECT src FROM moves WHERE src LIKE CONCAT(?, '/%') ORDER BY src
		`, localPath)
		if err != nil {
			return err
		}
		var children []string
		for rows.Next() {
			var src string
			if err := rows.Scan(&src); err != nil {
				rows.Close()
				return err
			}
			children = append(children, src)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, child := range children {
			desc := types.Descriptor{
				Kind:      types.KindTree,
				LocalPath: child,
				NodeKind:  types.NodeUnknown,
				Operation: types.OperationUpdate,
				Action:    types.ActionEdit,
				Reason:    types.ReasonMovedAway,
			}
			if parent != nil {
				desc.Operation = parent.Operation
				desc.Action = parent.Action
				desc.Left = parent.Left
				desc.Right = parent.Right
			}
			payload, err := json.Marshal(desc)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				REPLACE INTO conflicts (local_path, kind, prop_name, descriptor)
				VALUES (?, ?, '', ?)
			`, child, string(types.KindTree), payload); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM conflicts WHERE local_path = ? AND kind = ?
		`, localPath, string(types.KindTree))
		return err
	})
	if err != nil {
		return fmt.Errorf("raise moved-away conflicts under %q: %w", localPath, err)
	}
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

func (s *Store) UpdateMovedAwayNode(ctx context.Context, localPath string, notify wc.NotifyFunc) error {
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM conflicts WHERE local_path = ? AND kind = ?
		`, localPath, string(types.KindTree))
		return err
	})
	if err != nil {
		return fmt.Errorf("update moved-away node for %q: %w", localPath, err)
	}
	if notify != nil {
		notify(wc.Notification{Path: localPath, Action: wc.NotifyResolved})
	}
	return nil
}

// readTreeDescriptor returns the tree-conflict descriptor on localPath
// within the transaction, or nil if none is recorded.
func (s *Store) readTreeDescriptor(ctx context.Context, tx *sql.Tx, localPath string) (*types.Descriptor, error) {
	var payload []byte
	err := tx.QueryRowContext(ctx, `
		SELECT descriptor FROM conflicts WHERE local_path = ? AND kind = ?
	`, localPath, string(types.KindTree)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var desc types.Descriptor
	if err := json.Unmarshal(payload, &desc); err != nil {
		return nil, fmt.Errorf("decode tree descriptor for %q: %w", localPath, err)
	}
	return &desc, nil
}

var _ wc.Store = (*Store)(nil)
