// Package modelstore persists quality models in SQL databases and reads them from files.
package modelstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/sqldb"
	"github.com/huangsam/prosoul/schema"
)

// Table names for model storage.
const (
	modelsTable           = "prosoul_models"
	goalsTable            = "prosoul_goals"
	attributesTable       = "prosoul_attributes"
	metricsTable          = "prosoul_metrics"
	factoidsTable         = "prosoul_factoids"
	modelGoalsTable       = "prosoul_model_goals"
	goalAttributesTable   = "prosoul_goal_attributes"
	goalSubgoalsTable     = "prosoul_goal_subgoals"
	subattributesTable    = "prosoul_attribute_subattributes"
	modelsMigrationsTable = "prosoul_models_migrations"
)

// allTables lists the model tables in status order.
var allTables = []string{
	modelsTable, goalsTable, attributesTable, metricsTable, factoidsTable,
	modelGoalsTable, goalAttributesTable, goalSubgoalsTable, subattributesTable,
}

//go:embed migrations
var migrationsFS embed.FS

// migrations is the embedded schema of the model store.
func migrations() sqldb.Migrations {
	sub, _ := fs.Sub(migrationsFS, "migrations")
	return sqldb.Migrations{FS: sub, Table: modelsMigrationsTable}
}

// Store implements contract.ModelStore on database/sql.
type Store struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.ModelStore = &Store{} // Compile-time check

// NewModelStore opens the model store for backend and migrates it to the latest schema.
func NewModelStore(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	if backend == schema.NoneBackend {
		return nil, errors.New("model store requires a database backend; use --models-file with none")
	}
	db, err := sqldb.Open(backend, connStr, contract.GetModelDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := sqldb.Migrate(db, backend, migrations(), -1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create model tables: %w", err)
	}
	return &Store{db: db, backend: backend}, nil
}

// Migrate runs model store migrations to targetVersion (see sqldb.Migrate).
func Migrate(backend schema.DatabaseBackend, connStr string, targetVersion int) (sqldb.MigrateResult, error) {
	if backend == schema.NoneBackend {
		return sqldb.MigrateResult{}, fmt.Errorf("migrations are not supported for NoneBackend")
	}
	db, err := sqldb.Open(backend, connStr, contract.GetModelDBFilePath())
	if err != nil {
		return sqldb.MigrateResult{}, err
	}
	defer func() { _ = db.Close() }()
	return sqldb.Migrate(db, backend, migrations(), targetVersion)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) q(query string) string {
	return sqldb.Rebind(query, s.backend)
}

func (s *Store) table(name string) string {
	return sqldb.QuoteTable(name, s.backend)
}

// ListModels returns all model names in sorted order.
func (s *Store) ListModels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT name FROM %s ORDER BY name", s.table(modelsTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan model name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveModel inserts or replaces a model and its whole tree. Goals and
// attributes reached more than once through the tree are stored once, so
// shared nodes and cycles survive a round trip.
func (s *Store) SaveModel(ctx context.Context, model *schema.QualityModel) error {
	if model == nil || model.Name == "" {
		return errors.New("model name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.deleteModel(ctx, tx, model.Name); err != nil {
		return err
	}

	modelID, err := sqldb.InsertID(ctx, tx, s.backend,
		fmt.Sprintf("INSERT INTO %s (name, description) VALUES (?, ?)", s.table(modelsTable)),
		model.Name, model.Description)
	if err != nil {
		return fmt.Errorf("failed to insert model %s: %w", model.Name, err)
	}

	w := &treeWriter{
		s:          s,
		tx:         tx,
		modelID:    modelID,
		goals:      make(map[*schema.Goal]int64),
		attributes: make(map[*schema.Attribute]int64),
	}
	for i, g := range model.Goals {
		if g == nil {
			continue
		}
		goalID, err := w.goal(ctx, g)
		if err != nil {
			return err
		}
		if err := w.link(ctx, modelGoalsTable, "model_id", "goal_id", modelID, goalID, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model %s: %w", model.Name, err)
	}
	slog.Debug("model saved", "model", model.Name, "goals", len(w.goals), "attributes", len(w.attributes))
	return nil
}

// treeWriter inserts one model tree, remembering the rows already written.
type treeWriter struct {
	s          *Store
	tx         *sql.Tx
	modelID    int64
	goals      map[*schema.Goal]int64
	attributes map[*schema.Attribute]int64
}

func (w *treeWriter) goal(ctx context.Context, g *schema.Goal) (int64, error) {
	if id, ok := w.goals[g]; ok {
		return id, nil
	}
	id, err := sqldb.InsertID(ctx, w.tx, w.s.backend,
		fmt.Sprintf("INSERT INTO %s (model_id, name, description) VALUES (?, ?, ?)", w.s.table(goalsTable)),
		w.modelID, g.Name, g.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert goal %s: %w", g.Name, err)
	}
	w.goals[g] = id

	for i, a := range g.Attributes {
		if a == nil {
			continue
		}
		attrID, err := w.attribute(ctx, a)
		if err != nil {
			return 0, err
		}
		if err := w.link(ctx, goalAttributesTable, "goal_id", "attribute_id", id, attrID, i); err != nil {
			return 0, err
		}
	}
	for i, sg := range g.Subgoals {
		if sg == nil {
			continue
		}
		subID, err := w.goal(ctx, sg)
		if err != nil {
			return 0, err
		}
		if err := w.link(ctx, goalSubgoalsTable, "goal_id", "subgoal_id", id, subID, i); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (w *treeWriter) attribute(ctx context.Context, a *schema.Attribute) (int64, error) {
	if id, ok := w.attributes[a]; ok {
		return id, nil
	}
	id, err := sqldb.InsertID(ctx, w.tx, w.s.backend,
		fmt.Sprintf("INSERT INTO %s (model_id, name, description) VALUES (?, ?, ?)", w.s.table(attributesTable)),
		w.modelID, a.Name, a.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attribute %s: %w", a.Name, err)
	}
	w.attributes[a] = id

	metricQuery := w.s.q(fmt.Sprintf(`INSERT INTO %s (attribute_id, position, name, thresholds, reverse,
		data_implementation, data_params, calculation_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, w.s.table(metricsTable)))
	for i, m := range a.Metrics {
		if m == nil {
			continue
		}
		var impl, params, calc any
		if m.Data != nil {
			impl, params, calc = m.Data.Implementation, m.Data.Params, string(m.Data.CalculationType)
		}
		if _, err := w.tx.ExecContext(ctx, metricQuery, id, i, m.Name, m.Thresholds, m.Reverse, impl, params, calc); err != nil {
			return 0, fmt.Errorf("failed to insert metric %s: %w", m.Name, err)
		}
	}

	factoidQuery := w.s.q(fmt.Sprintf("INSERT INTO %s (attribute_id, position, name) VALUES (?, ?, ?)", w.s.table(factoidsTable)))
	for i, f := range a.Factoids {
		if _, err := w.tx.ExecContext(ctx, factoidQuery, id, i, f); err != nil {
			return 0, fmt.Errorf("failed to insert factoid %s: %w", f, err)
		}
	}

	for i, sub := range a.Subattributes {
		if sub == nil {
			continue
		}
		subID, err := w.attribute(ctx, sub)
		if err != nil {
			return 0, err
		}
		if err := w.link(ctx, subattributesTable, "attribute_id", "subattribute_id", id, subID, i); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (w *treeWriter) link(ctx context.Context, table, parentCol, childCol string, parent, child int64, position int) error {
	query := w.s.q(fmt.Sprintf("INSERT INTO %s (%s, %s, position) VALUES (?, ?, ?)", w.s.table(table), parentCol, childCol))
	if _, err := w.tx.ExecContext(ctx, query, parent, child, position); err != nil {
		return fmt.Errorf("failed to link %s: %w", table, err)
	}
	return nil
}

// DeleteModel removes a model and its whole tree by name.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	found, err := s.deleteModel(ctx, tx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", contract.ErrModelNotFound, name)
	}
	return tx.Commit()
}

// deleteModel removes the named model, if any, inside tx.
func (s *Store) deleteModel(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.q(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", s.table(modelsTable))), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up model %s: %w", name, err)
	}

	goalsOf := fmt.Sprintf("SELECT id FROM %s WHERE model_id = ?", s.table(goalsTable))
	attrsOf := fmt.Sprintf("SELECT id FROM %s WHERE model_id = ?", s.table(attributesTable))
	statements := []string{
		fmt.Sprintf("DELETE FROM %s WHERE attribute_id IN (%s)", s.table(subattributesTable), attrsOf),
		fmt.Sprintf("DELETE FROM %s WHERE goal_id IN (%s)", s.table(goalSubgoalsTable), goalsOf),
		fmt.Sprintf("DELETE FROM %s WHERE goal_id IN (%s)", s.table(goalAttributesTable), goalsOf),
		fmt.Sprintf("DELETE FROM %s WHERE attribute_id IN (%s)", s.table(factoidsTable), attrsOf),
		fmt.Sprintf("DELETE FROM %s WHERE attribute_id IN (%s)", s.table(metricsTable), attrsOf),
		fmt.Sprintf("DELETE FROM %s WHERE model_id = ?", s.table(modelGoalsTable)),
		fmt.Sprintf("DELETE FROM %s WHERE model_id = ?", s.table(attributesTable)),
		fmt.Sprintf("DELETE FROM %s WHERE model_id = ?", s.table(goalsTable)),
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table(modelsTable)),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
			return false, fmt.Errorf("failed to delete model %s: %w", name, err)
		}
	}
	return true, nil
}

// GetStatus returns status information about the model store.
func (s *Store) GetStatus(ctx context.Context) (schema.ModelStoreStatus, error) {
	status := schema.ModelStoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}
	sizes, err := sqldb.CountRows(ctx, s.db, s.backend, allTables...)
	if err != nil {
		return status, err
	}
	status.TableSizes = sizes
	status.TotalModels = int(sizes[modelsTable])
	return status, nil
}

// GetModel loads the named model and rebuilds its goal and attribute graph.
func (s *Store) GetModel(ctx context.Context, name string) (*schema.QualityModel, error) {
	model := &schema.QualityModel{Name: name}
	var modelID int64
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(fmt.Sprintf("SELECT id, description FROM %s WHERE name = ?", s.table(modelsTable))), name).
		Scan(&modelID, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contract.ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", name, err)
	}
	model.Description = description.String

	l := &treeLoader{s: s, modelID: modelID}
	if err := l.load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", name, err)
	}
	model.Goals = l.rootGoals
	return model, nil
}

// treeLoader reads every row of one model and wires the pointers.
type treeLoader struct {
	s          *Store
	modelID    int64
	goals      map[int64]*schema.Goal
	attributes map[int64]*schema.Attribute
	rootGoals  []*schema.Goal
}

func (l *treeLoader) load(ctx context.Context) error {
	l.goals = make(map[int64]*schema.Goal)
	l.attributes = make(map[int64]*schema.Attribute)
	s := l.s

	// --- 1. Nodes ---
	if err := l.each(ctx, fmt.Sprintf("SELECT id, name, description FROM %s WHERE model_id = ?", s.table(goalsTable)), func(rows *sql.Rows) error {
		g := &schema.Goal{}
		var desc sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &desc); err != nil {
			return err
		}
		g.Description = desc.String
		l.goals[g.ID] = g
		return nil
	}); err != nil {
		return err
	}
	if err := l.each(ctx, fmt.Sprintf("SELECT id, name, description FROM %s WHERE model_id = ?", s.table(attributesTable)), func(rows *sql.Rows) error {
		a := &schema.Attribute{}
		var desc sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &desc); err != nil {
			return err
		}
		a.Description = desc.String
		l.attributes[a.ID] = a
		return nil
	}); err != nil {
		return err
	}

	// --- 2. Metrics and factoids, in position order ---
	metricsQuery := fmt.Sprintf(`SELECT m.attribute_id, m.name, m.thresholds, m.reverse, m.data_implementation,
		m.data_params, m.calculation_type FROM %s m JOIN %s a ON a.id = m.attribute_id
		WHERE a.model_id = ? ORDER BY m.attribute_id, m.position`, s.table(metricsTable), s.table(attributesTable))
	if err := l.each(ctx, metricsQuery, func(rows *sql.Rows) error {
		var attrID int64
		var thresholds, impl, params, calc sql.NullString
		m := &schema.Metric{}
		if err := rows.Scan(&attrID, &m.Name, &thresholds, &m.Reverse, &impl, &params, &calc); err != nil {
			return err
		}
		m.Thresholds = thresholds.String
		if impl.Valid {
			m.Data = &schema.MetricData{
				Implementation:  impl.String,
				Params:          params.String,
				CalculationType: schema.CalculationType(calc.String),
			}
		}
		if a, ok := l.attributes[attrID]; ok {
			a.Metrics = append(a.Metrics, m)
		}
		return nil
	}); err != nil {
		return err
	}
	factoidsQuery := fmt.Sprintf(`SELECT f.attribute_id, f.name FROM %s f JOIN %s a ON a.id = f.attribute_id
		WHERE a.model_id = ? ORDER BY f.attribute_id, f.position`, s.table(factoidsTable), s.table(attributesTable))
	if err := l.each(ctx, factoidsQuery, func(rows *sql.Rows) error {
		var attrID int64
		var name string
		if err := rows.Scan(&attrID, &name); err != nil {
			return err
		}
		if a, ok := l.attributes[attrID]; ok {
			a.Factoids = append(a.Factoids, name)
		}
		return nil
	}); err != nil {
		return err
	}

	// --- 3. Edges, in position order ---
	if err := l.edges(ctx, modelGoalsTable, "model_id", "goal_id", "", func(_, child int64) {
		if g, ok := l.goals[child]; ok {
			l.rootGoals = append(l.rootGoals, g)
		}
	}); err != nil {
		return err
	}
	if err := l.edges(ctx, goalAttributesTable, "goal_id", "attribute_id", goalsTable, func(parent, child int64) {
		g, a := l.goals[parent], l.attributes[child]
		if g != nil && a != nil {
			g.Attributes = append(g.Attributes, a)
		}
	}); err != nil {
		return err
	}
	if err := l.edges(ctx, goalSubgoalsTable, "goal_id", "subgoal_id", goalsTable, func(parent, child int64) {
		g, sg := l.goals[parent], l.goals[child]
		if g != nil && sg != nil {
			g.Subgoals = append(g.Subgoals, sg)
		}
	}); err != nil {
		return err
	}
	return l.edges(ctx, subattributesTable, "attribute_id", "subattribute_id", attributesTable, func(parent, child int64) {
		a, sub := l.attributes[parent], l.attributes[child]
		if a != nil && sub != nil {
			a.Subattributes = append(a.Subattributes, sub)
		}
	})
}

// edges reads a link table restricted to this model. ownerTable is the
// table holding the parent rows, or empty when the parent is the model.
func (l *treeLoader) edges(ctx context.Context, table, parentCol, childCol, ownerTable string, add func(parent, child int64)) error {
	s := l.s
	var query string
	if ownerTable == "" {
		query = fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ? ORDER BY position",
			parentCol, childCol, s.table(table), parentCol)
	} else {
		query = fmt.Sprintf("SELECT e.%s, e.%s FROM %s e JOIN %s o ON o.id = e.%s WHERE o.model_id = ? ORDER BY e.%s, e.position",
			parentCol, childCol, s.table(table), s.table(ownerTable), parentCol, parentCol)
	}
	return l.each(ctx, query, func(rows *sql.Rows) error {
		var parent, child int64
		if err := rows.Scan(&parent, &child); err != nil {
			return err
		}
		add(parent, child)
		return nil
	})
}

// each runs query with the model id and calls fn for every row.
func (l *treeLoader) each(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := l.s.db.QueryContext(ctx, l.s.q(query), l.modelID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveModels saves every model and returns their names in sorted order.
func SaveModels(ctx context.Context, store contract.ModelStore, models []*schema.QualityModel) ([]string, error) {
	names := make([]string, 0, len(models))
	for _, m := range models {
		if err := store.SaveModel(ctx, m); err != nil {
			return names, fmt.Errorf("save model %s: %w", m.Name, err)
		}
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names, nil
}
