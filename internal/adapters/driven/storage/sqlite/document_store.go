package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DocumentStore = (*documentStore)(nil)

// documentStore wraps Store to implement driven.DocumentStore.
type documentStore struct {
	store *Store
}

const documentColumns = `d.id, d.collection_id, d.kind, d.title, d.body, d.blob_ref,
	d.pinned, d.parent_id, d.content_hash, d.created_at`

// EnsureCollection returns the collection with name, creating it if needed.
func (s *documentStore) EnsureCollection(ctx context.Context, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO collections (name, created_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("inserting collection: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM collections WHERE name = ?`, name)
	return scanCollection(row)
}

// GetCollection retrieves a collection by ID.
func (s *documentStore) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM collections WHERE id = ?`, id)
	return scanCollection(row)
}

// ListCollections returns every collection ordered by name.
func (s *documentStore) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	out := []domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SaveDocument stores a new document with its chunks and tags in one transaction.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.Tags = domain.NormaliseTags(doc.Tags)

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = ?`, doc.CollectionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking collection: %w", err)
		}

		var parent any
		if doc.ParentID != nil {
			parent = *doc.ParentID
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection_id, kind, title, title_folded, body, blob_ref, pinned, parent_id, content_hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.CollectionID, string(doc.Kind), doc.Title, foldTitle(doc.Title), doc.Text, doc.BlobRef,
			boolInt(doc.Pinned), parent, doc.ContentHash, doc.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		if doc.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading document id: %w", err)
		}

		for i := range chunks {
			chunks[i].DocumentID = doc.ID
			res, err := tx.ExecContext(ctx, `
				INSERT INTO chunks (document_id, position, body, tokens) VALUES (?, ?, ?, ?)
			`, doc.ID, chunks[i].Index, chunks[i].Text, chunks[i].Tokens)
			if err != nil {
				return fmt.Errorf("inserting chunk %d: %w", chunks[i].Index, err)
			}
			if chunks[i].ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading chunk id: %w", err)
			}
		}

		return writeTags(ctx, tx, doc.ID, doc.Tags)
	})
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, []*domain.Document{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocuments returns the visible documents among ids, in the order of ids.
func (s *documentStore) GetDocuments(ctx context.Context, ids []int64, collectionIDs []int64) ([]domain.Document, error) {
	if len(ids) == 0 || len(collectionIDs) == 0 {
		return []domain.Document{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM documents d WHERE d.id IN (%s) AND d.collection_id IN (%s)`,
		documentColumns, placeholders(len(ids)), placeholders(len(collectionIDs)))
	args := append(int64Args(ids), int64Args(collectionIDs)...)

	found, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Document, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, position, body, tokens
		FROM chunks WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.Tokens); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchDocuments returns one page of matches, newest first, and the total match count.
func (s *documentStore) SearchDocuments(ctx context.Context, q driven.DocumentQuery) ([]domain.Document, int, error) {
	if len(q.CollectionIDs) == 0 {
		return []domain.Document{}, 0, nil
	}

	where := []string{fmt.Sprintf("d.collection_id IN (%s)", placeholders(len(q.CollectionIDs)))}
	args := int64Args(q.CollectionIDs)

	switch q.Query.Kind {
	case domain.QueryByID:
		where = append(where, "d.id = ?")
		args = append(args, q.Query.ID)
	case domain.QueryByTag:
		// EXISTS keeps a document with several matching tags to a single row.
		where = append(where, `EXISTS (
			SELECT 1 FROM document_tags dt JOIN tags t ON t.id = dt.tag_id
			WHERE dt.document_id = d.id AND t.name LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(q.Query.Needle))
	case domain.QueryByName:
		where = append(where, `d.title_folded LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Query.Needle))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents d WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	pageArgs := append(append([]any(nil), args...), limit, max(q.Offset, 0))
	docs, err := s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE `+clause+
			` ORDER BY d.created_at DESC, d.id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// FindByContentHash returns the document in collectionID with the given hash.
func (s *documentStore) FindByContentHash(ctx context.Context, collectionID int64, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.collection_id = ? AND d.content_hash = ?
		ORDER BY d.id LIMIT 1
	`, collectionID, hash)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, []*domain.Document{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetTags replaces a document's tag set.
func (s *documentStore) SetTags(ctx context.Context, documentID int64, tags []string) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, documentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clearing tags: %w", err)
		}
		return writeTags(ctx, tx, documentID, domain.NormaliseTags(tags))
	})
}

// SetPinned updates a document's pinned flag.
func (s *documentStore) SetPinned(ctx context.Context, documentID int64, pinned bool) error {
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE documents SET pinned = ? WHERE id = ?`, boolInt(pinned), documentID)
	if err != nil {
		return fmt.Errorf("updating pinned: %w", err)
	}
	return requireAffected(res)
}

// DeleteDocument removes a document. Chunks and tag links cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireAffected(res)
}

// DeleteCollectionDocuments removes the documents of a collection.
func (s *documentStore) DeleteCollectionDocuments(ctx context.Context, collectionID int64, keepPinned bool) (int, error) {
	query := `DELETE FROM documents WHERE collection_id = ?`
	if keepPinned {
		query += ` AND pinned = 0`
	}
	res, err := s.store.db.ExecContext(ctx, query, collectionID)
	if err != nil {
		return 0, fmt.Errorf("deleting documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(n), nil
}

// CountDocuments returns the number of documents in a collection.
func (s *documentStore) CountDocuments(ctx context.Context, collectionID int64) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection_id = ?`, collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *documentStore) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var ptrs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadTags(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]domain.Document, len(ptrs))
	for i, d := range ptrs {
		out[i] = *d
	}
	return out, nil
}

// loadTags fills the Tags field of docs with one query.
func (s *documentStore) loadTags(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Document, len(docs))
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		d.Tags = []string{}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT dt.document_id, t.name FROM document_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.document_id IN (%s)
		ORDER BY t.name
	`, placeholders(len(ids))), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scanning tag: %w", err)
		}
		if d, ok := byID[id]; ok {
			d.Tags = append(d.Tags, name)
		}
	}
	return rows.Err()
}

func writeTags(ctx context.Context, tx *sql.Tx, documentID int64, tags []string) error {
	for _, name := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("inserting tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO document_tags (document_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`, documentID, name); err != nil {
			return fmt.Errorf("linking tag %q: %w", name, err)
		}
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(row scanner) (*domain.Collection, error) {
	var c domain.Collection
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}
	return &c, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc    domain.Document
		kind   string
		pinned int
		parent sql.NullInt64
	)
	err := row.Scan(&doc.ID, &doc.CollectionID, &kind, &doc.Title, &doc.Text, &doc.BlobRef,
		&pinned, &parent, &doc.ContentHash, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Kind = domain.DocumentKind(kind)
	doc.Pinned = pinned != 0
	if parent.Valid {
		p := parent.Int64
		doc.ParentID = &p
	}
	return &doc, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
