package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nlcraft/kgrag/pkg/types"
)

// Dialect identifies the SQL flavor of the backing database.
type Dialect string

const (
	// DialectSQLite is the embedded pure-Go backend (modernc.org/sqlite).
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres is the external PostgreSQL backend (lib/pq).
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements GraphStore on top of database/sql. The same statements
// run against both dialects; only placeholder syntax differs.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	type       TEXT NOT NULL DEFAULT '',
	aliases    TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
	id               TEXT PRIMARY KEY,
	source_entity_id TEXT NOT NULL REFERENCES entities(id),
	target_entity_id TEXT NOT NULL REFERENCES entities(id),
	relation_type    TEXT NOT NULL,
	weight           REAL NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE (source_entity_id, target_entity_id, relation_type)
);

CREATE TABLE IF NOT EXISTS relation_evidence (
	relation_id TEXT NOT NULL REFERENCES relations(id),
	fact_id     TEXT NOT NULL,
	PRIMARY KEY (relation_id, fact_id)
);

CREATE TABLE IF NOT EXISTS facts (
	id                 TEXT PRIMARY KEY,
	content            TEXT NOT NULL,
	confidence         REAL NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	source_fragment_id TEXT,
	linked_entities    TEXT NOT NULL DEFAULT '[]',
	embedding          TEXT,
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fragments (
	id           TEXT PRIMARY KEY,
	article_id   TEXT,
	content      TEXT NOT NULL,
	position     INTEGER NOT NULL DEFAULT 0,
	embedding    TEXT,
	indexed      INTEGER NOT NULL DEFAULT 0,
	source_title TEXT
);

CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_entity_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_entity_id);
CREATE INDEX IF NOT EXISTS idx_facts_status ON facts(status);
`

// newSQLStore wraps an open database handle and ensures the schema exists.
func newSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.createSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the dialect's native form.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

func marshalVector(v []float32) sql.NullString {
	if len(v) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func unmarshalVector(data sql.NullString) []float32 {
	if !data.Valid || data.String == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(data.String), &v); err != nil {
		return nil
	}
	return v
}

// UpsertEntity inserts or updates an entity by its unique name using a single
// conditional upsert statement, so concurrent calls with the same name cannot
// race and always resolve to the same ID. Empty type or aliases never
// overwrite previously stored values.
func (s *SQLStore) UpsertEntity(ctx context.Context, name, entityType string, aliases []string) (string, error) {
	if name == "" {
		return "", types.ErrEmptyName
	}

	now := formatTime(time.Now())
	query := s.rebind(`
		INSERT INTO entities (id, name, type, aliases, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			type = COALESCE(NULLIF(excluded.type, ''), entities.type),
			aliases = CASE WHEN excluded.aliases IN ('', '[]')
				THEN entities.aliases ELSE excluded.aliases END,
			updated_at = excluded.updated_at
		RETURNING id`)

	var id string
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(), name, entityType, marshalStrings(aliases), now, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert entity %q: %w", name, err)
	}
	return id, nil
}

// GetEntity retrieves an entity by ID.
func (s *SQLStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	query := s.rebind(`
		SELECT id, name, type, aliases, created_at, updated_at
		FROM entities WHERE id = ?`)

	entity, err := scanEntity(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrEntityNotFound)
	}
	return entity, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*types.Entity, error) {
	var e types.Entity
	var aliases, createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &aliases, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Aliases = unmarshalStrings(aliases)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// UpsertRelation accumulates weight onto the (source, target, type) key inside
// a single transaction. The weight addition happens in the database, not in Go,
// so concurrent ingestion cannot lose updates.
func (s *SQLStore) UpsertRelation(ctx context.Context, sourceID, targetID, relationType string, weightIncrement float64, evidenceFactID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, endpoint := range []string{sourceID, targetID} {
		var exists bool
		query := s.rebind(`SELECT EXISTS (SELECT 1 FROM entities WHERE id = ?)`)
		if err := tx.QueryRowContext(ctx, query, endpoint).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check entity %s: %w", endpoint, err)
		}
		if !exists {
			return false, fmt.Errorf("relation endpoint %s: %w", endpoint, ErrEntityNotFound)
		}
	}

	now := formatTime(time.Now())
	candidateID := uuid.NewString()
	query := s.rebind(`
		INSERT INTO relations (id, source_entity_id, target_entity_id, relation_type, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_entity_id, target_entity_id, relation_type) DO UPDATE SET
			weight = relations.weight + excluded.weight,
			updated_at = excluded.updated_at
		RETURNING id`)

	var relationID string
	err = tx.QueryRowContext(ctx, query,
		candidateID, sourceID, targetID, relationType, weightIncrement, now, now,
	).Scan(&relationID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert relation %s-[%s]->%s: %w", sourceID, relationType, targetID, err)
	}

	if evidenceFactID != "" {
		query = s.rebind(`
			INSERT INTO relation_evidence (relation_id, fact_id)
			VALUES (?, ?)
			ON CONFLICT (relation_id, fact_id) DO NOTHING`)
		if _, err := tx.ExecContext(ctx, query, relationID, evidenceFactID); err != nil {
			return false, fmt.Errorf("failed to record evidence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit relation upsert: %w", err)
	}
	return relationID == candidateID, nil
}

// GetRelationEvidence returns the fact IDs recorded as evidence for a
// relation, in insertion order.
func (s *SQLStore) GetRelationEvidence(ctx context.Context, relationID string) ([]string, error) {
	query := s.rebind(`
		SELECT fact_id FROM relation_evidence
		WHERE relation_id = ? ORDER BY rowid`)
	if s.dialect == DialectPostgres {
		query = s.rebind(`
			SELECT fact_id FROM relation_evidence
			WHERE relation_id = ? ORDER BY fact_id`)
	}

	rows, err := s.db.QueryContext(ctx, query, relationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relation evidence: %w", err)
	}
	defer rows.Close()

	var factIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		factIDs = append(factIDs, id)
	}
	return factIDs, rows.Err()
}

// FindVertices matches entity names case-insensitively as substrings.
func (s *SQLStore) FindVertices(ctx context.Context, namePattern string, limit int) ([]*types.Entity, error) {
	if limit <= 0 {
		return nil, types.ErrInvalidLimit
	}

	pattern := "%" + escapeLike(strings.ToLower(namePattern)) + "%"
	query := s.rebind(`
		SELECT id, name, type, aliases, created_at, updated_at
		FROM entities
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY name
		LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find vertices: %w", err)
	}
	defer rows.Close()

	var entities []*types.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// edgesTouching loads all relations incident to any of the given entity IDs.
func (s *SQLStore) edgesTouching(ctx context.Context, ids []string) ([]*types.Relation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := s.rebind(fmt.Sprintf(`
		SELECT id, source_entity_id, target_entity_id, relation_type, weight, created_at, updated_at
		FROM relations
		WHERE source_entity_id IN (%s) OR target_entity_id IN (%s)`,
		placeholders, placeholders))

	args := make([]any, 0, 2*len(ids))
	for i := 0; i < 2; i++ {
		for _, id := range ids {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident edges: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

func scanRelations(rows *sql.Rows) ([]*types.Relation, error) {
	var relations []*types.Relation
	for rows.Next() {
		var r types.Relation
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &r.RelationType, &r.Weight, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		relations = append(relations, &r)
	}
	return relations, rows.Err()
}

// GetEntityNeighbors expands breadth-first from entityID up to depth hops,
// following edges in both directions.
func (s *SQLStore) GetEntityNeighbors(ctx context.Context, entityID string, depth int) (*types.Neighborhood, error) {
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	if depth < 1 {
		depth = 1
	}

	visited := map[string]bool{entityID: true}
	seenEdges := map[string]bool{}
	frontier := []string{entityID}
	var edges []*types.Relation

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		incident, err := s.edgesTouching(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, edge := range incident {
			if !seenEdges[edge.ID] {
				seenEdges[edge.ID] = true
				edges = append(edges, edge)
			}
			for _, endpoint := range []string{edge.SourceEntityID, edge.TargetEntityID} {
				if !visited[endpoint] {
					visited[endpoint] = true
					next = append(next, endpoint)
				}
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	nodes, err := s.entitiesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &types.Neighborhood{Nodes: nodes, Edges: edges}, nil
}

func (s *SQLStore) entitiesByIDs(ctx context.Context, ids []string) ([]*types.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := s.rebind(fmt.Sprintf(`
		SELECT id, name, type, aliases, created_at, updated_at
		FROM entities WHERE id IN (%s) ORDER BY name`, placeholders))

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	defer rows.Close()

	var entities []*types.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// GetShortestPath finds the first minimal-hop path between two entities via
// unweighted BFS. The visited set keeps paths simple and bounds the scan to
// the reachable subgraph.
func (s *SQLStore) GetShortestPath(ctx context.Context, sourceID, targetID string, maxDepth int) ([]*types.Relation, error) {
	if sourceID == targetID || maxDepth < 1 {
		return []*types.Relation{}, nil
	}

	visited := map[string]bool{sourceID: true}
	parents := map[string]pathStep{}
	frontier := []string{sourceID}

	for hop := 0; hop < maxDepth && len(frontier) > 0; hop++ {
		incident, err := s.edgesTouching(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, edge := range incident {
			for _, pair := range [][2]string{
				{edge.SourceEntityID, edge.TargetEntityID},
				{edge.TargetEntityID, edge.SourceEntityID},
			} {
				from, to := pair[0], pair[1]
				if !visited[from] || visited[to] {
					continue
				}
				visited[to] = true
				parents[to] = pathStep{via: edge, prev: from}
				if to == targetID {
					return reconstructPath(parents, sourceID, targetID), nil
				}
				next = append(next, to)
			}
		}
		frontier = next
	}

	return []*types.Relation{}, nil
}

// pathStep records how BFS first reached a node.
type pathStep struct {
	via  *types.Relation
	prev string
}

func reconstructPath(parents map[string]pathStep, source, target string) []*types.Relation {
	var path []*types.Relation
	for at := target; at != source; {
		p := parents[at]
		path = append(path, p.via)
		at = p.prev
	}
	// Reverse into source-to-target order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// GetAllRelations returns every stored relation.
func (s *SQLStore) GetAllRelations(ctx context.Context) ([]*types.Relation, error) {
	query := `
		SELECT id, source_entity_id, target_entity_id, relation_type, weight, created_at, updated_at
		FROM relations`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load relations: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// GetStatistics returns aggregate counts and per-type histograms.
func (s *SQLStore) GetStatistics(ctx context.Context) (*types.GraphStatistics, error) {
	stats := &types.GraphStatistics{
		EntityTypeCounts:   map[string]int64{},
		RelationTypeCounts: map[string]int64{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&stats.EntityCount); err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relations`).Scan(&stats.RelationCount); err != nil {
		return nil, fmt.Errorf("failed to count relations: %w", err)
	}

	for table, hist := range map[string]map[string]int64{
		"entities":  stats.EntityTypeCounts,
		"relations": stats.RelationTypeCounts,
	} {
		column := "type"
		if table == "relations" {
			column = "relation_type"
		}
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`, column, table, column))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s histogram: %w", table, err)
		}
		for rows.Next() {
			var typeName string
			var count int64
			if err := rows.Scan(&typeName, &count); err != nil {
				rows.Close()
				return nil, err
			}
			hist[typeName] = count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return stats, nil
}

// InsertFact stores a new fact, assigning an ID when absent.
func (s *SQLStore) InsertFact(ctx context.Context, fact *types.Fact) error {
	if err := fact.Validate(); err != nil {
		return err
	}
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	if fact.Status == "" {
		fact.Status = types.FactPending
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}

	query := s.rebind(`
		INSERT INTO facts (id, content, confidence, status, source_fragment_id, linked_entities, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		fact.ID, fact.Content, fact.Confidence, string(fact.Status),
		fact.SourceFragmentID, marshalStrings(fact.LinkedEntityIDs),
		marshalVector(fact.Embedding), formatTime(fact.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}
	return nil
}

// GetFact retrieves a fact by ID.
func (s *SQLStore) GetFact(ctx context.Context, id string) (*types.Fact, error) {
	query := s.rebind(`
		SELECT id, content, confidence, status, source_fragment_id, linked_entities, embedding, created_at
		FROM facts WHERE id = ?`)

	fact, err := scanFact(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fact %s: %w", id, ErrFactNotFound)
	}
	return fact, err
}

func scanFact(row rowScanner) (*types.Fact, error) {
	var f types.Fact
	var status, linked, createdAt string
	var sourceFragment sql.NullString
	var embedding sql.NullString
	if err := row.Scan(&f.ID, &f.Content, &f.Confidence, &status, &sourceFragment, &linked, &embedding, &createdAt); err != nil {
		return nil, err
	}
	f.Status = types.FactStatus(status)
	f.SourceFragmentID = sourceFragment.String
	f.LinkedEntityIDs = unmarshalStrings(linked)
	f.Embedding = unmarshalVector(embedding)
	f.CreatedAt = parseTime(createdAt)
	return &f, nil
}

// GetFactsByStatus returns facts in the given statuses ordered by confidence
// descending.
func (s *SQLStore) GetFactsByStatus(ctx context.Context, statuses []types.FactStatus, limit int) ([]*types.Fact, error) {
	if limit <= 0 {
		return nil, types.ErrInvalidLimit
	}
	if len(statuses) == 0 {
		statuses = []types.FactStatus{types.FactVerified, types.FactPending}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := s.rebind(fmt.Sprintf(`
		SELECT id, content, confidence, status, source_fragment_id, linked_entities, embedding, created_at
		FROM facts
		WHERE status IN (%s)
		ORDER BY confidence DESC, created_at ASC
		LIMIT ?`, placeholders))

	args := make([]any, 0, len(statuses)+1)
	for _, status := range statuses {
		args = append(args, string(status))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	defer rows.Close()

	var facts []*types.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

// UpdateFactStatus transitions a fact's verification status.
func (s *SQLStore) UpdateFactStatus(ctx context.Context, id string, status types.FactStatus) error {
	query := s.rebind(`UPDATE facts SET status = ? WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update fact status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fact %s: %w", id, ErrFactNotFound)
	}
	return nil
}

// InsertFragment stores a new fragment, assigning an ID when absent.
func (s *SQLStore) InsertFragment(ctx context.Context, fragment *types.Fragment) error {
	if err := fragment.Validate(); err != nil {
		return err
	}
	if fragment.ID == "" {
		fragment.ID = uuid.NewString()
	}

	indexed := 0
	if fragment.Indexed {
		indexed = 1
	}
	query := s.rebind(`
		INSERT INTO fragments (id, article_id, content, position, embedding, indexed, source_title)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		fragment.ID, fragment.ArticleID, fragment.Content, fragment.Position,
		marshalVector(fragment.Embedding), indexed, fragment.SourceTitle)
	if err != nil {
		return fmt.Errorf("failed to insert fragment: %w", err)
	}
	return nil
}

// GetFragment retrieves a fragment by ID.
func (s *SQLStore) GetFragment(ctx context.Context, id string) (*types.Fragment, error) {
	query := s.rebind(`
		SELECT id, article_id, content, position, embedding, indexed, source_title
		FROM fragments WHERE id = ?`)

	fragment, err := scanFragment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fragment %s: %w", id, ErrFragmentNotFound)
	}
	return fragment, err
}

func scanFragment(row rowScanner) (*types.Fragment, error) {
	var f types.Fragment
	var articleID, embedding, sourceTitle sql.NullString
	var indexed int
	if err := row.Scan(&f.ID, &articleID, &f.Content, &f.Position, &embedding, &indexed, &sourceTitle); err != nil {
		return nil, err
	}
	f.ArticleID = articleID.String
	f.Embedding = unmarshalVector(embedding)
	f.Indexed = indexed != 0
	f.SourceTitle = sourceTitle.String
	return &f, nil
}

// IndexedFragments returns all fragments with stored embeddings.
func (s *SQLStore) IndexedFragments(ctx context.Context) ([]*types.Fragment, error) {
	query := `
		SELECT id, article_id, content, position, embedding, indexed, source_title
		FROM fragments WHERE indexed = 1 ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load indexed fragments: %w", err)
	}
	defer rows.Close()

	var fragments []*types.Fragment
	for rows.Next() {
		fragment, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, rows.Err()
}

// MarkFragmentIndexed stores a fragment's embedding and flips its indexed flag.
func (s *SQLStore) MarkFragmentIndexed(ctx context.Context, id string, embedding []float32) error {
	query := s.rebind(`UPDATE fragments SET embedding = ?, indexed = 1 WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, marshalVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to mark fragment indexed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fragment %s: %w", id, ErrFragmentNotFound)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
