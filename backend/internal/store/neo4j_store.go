package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"askgraph/backend/pkg/logger"
)

// Neo4jStore is a Store backed by a Neo4j server
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewNeo4jStore wraps an existing driver. database may be empty for the server default.
func NewNeo4jStore(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{
		driver:   driver,
		database: database,
		logger:   logger.Named("store.neo4j"),
	}
}

// OpenNeo4j creates a driver and verifies connectivity
func OpenNeo4j(ctx context.Context, uri, user, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, translate("connect", fmt.Errorf("failed to create Neo4j driver: %w", err))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, translate("connect", fmt.Errorf("failed to verify Neo4j connectivity: %w", err))
	}
	return NewNeo4jStore(driver, database), nil
}

func (s *Neo4jStore) Backend() string { return "neo4j" }

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return translate("ping", s.driver.VerifyConnectivity(ctx))
}

func (s *Neo4jStore) View(ctx context.Context, fn func(tx Tx) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return translate("view", err)
}

// Update runs fn in a managed write transaction. The driver retries fn on
// transient failures, so fn must not have effects outside the transaction.
func (s *Neo4jStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return translate("update", err)
}

// Query runs a Cypher query outside any caller transaction
func (s *Neo4jStore) Query(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, translate("query", err)
	}

	records := make([]Record, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(Record, len(rec.Keys))
		for k, v := range rec.AsMap() {
			row[k] = normalizeValue(v)
		}
		records = append(records, row)
	}
	s.logger.Debug("Query executed", zap.Int("records", len(records)))
	return records, nil
}

// neo4jTx implements Tx on a managed transaction. Driver errors are returned
// unwrapped so the driver can classify them for retry.
type neo4jTx struct {
	tx neo4j.ManagedTransaction
}

func (t *neo4jTx) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (t *neo4jTx) FindOne(ctx context.Context, ref Ref) (*Node, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`MATCH (n:%s {%s: $value}) RETURN n LIMIT 1`, ref.Label, ref.Key)

	records, err := t.collect(ctx, query, map[string]any{"value": ref.Value})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return getNodeFromRecord(records[0], "n"), nil
}

func (t *neo4jTx) FindBy(ctx context.Context, label, prop string, value any) ([]*Node, error) {
	if err := validateIdentifier("label", label); err != nil {
		return nil, err
	}
	if err := validateIdentifier("property", prop); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`MATCH (n:%s) WHERE n.%s = $value RETURN n`, label, prop)

	records, err := t.collect(ctx, query, map[string]any{"value": value})
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(records))
	for _, rec := range records {
		if n := getNodeFromRecord(rec, "n"); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (t *neo4jTx) UpsertNode(ctx context.Context, ref Ref, props Props) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	// The marker property distinguishes the ON CREATE branch; the unique
	// constraint on (label, key) serializes concurrent creators.
	query := fmt.Sprintf(`
		MERGE (n:%s {%s: $value})
		ON CREATE SET n += $props, n.__created = true
		WITH n, n.__created IS NOT NULL AS created
		REMOVE n.__created
		RETURN created
	`, ref.Label, ref.Key)

	records, err := t.collect(ctx, query, map[string]any{
		"value": ref.Value,
		"props": map[string]any(withoutKey(props, ref.Key)),
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return getBoolFromRecord(records[0], "created"), nil
}

func (t *neo4jTx) SetProps(ctx context.Context, ref Ref, props Props) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		MATCH (n:%s {%s: $value})
		SET n += $props
		RETURN count(n) AS matched
	`, ref.Label, ref.Key)

	records, err := t.collect(ctx, query, map[string]any{
		"value": ref.Value,
		"props": map[string]any(withoutKey(props, ref.Key)),
	})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64FromRecord(records[0], "matched") > 0, nil
}

func (t *neo4jTx) Increment(ctx context.Context, ref Ref, prop string, delta int64) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	if err := validateIdentifier("property", prop); err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		MATCH (n:%s {%s: $value})
		SET n.%s = coalesce(n.%s, 0) + $delta
		RETURN count(n) AS matched
	`, ref.Label, ref.Key, prop, prop)

	records, err := t.collect(ctx, query, map[string]any{"value": ref.Value, "delta": delta})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64FromRecord(records[0], "matched") > 0, nil
}

func (t *neo4jTx) CreateRelationship(ctx context.Context, from Ref, relType string, to Ref, props Props) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	if props == nil {
		props = Props{}
	}
	query := fmt.Sprintf(`
		MATCH (a:%s {%s: $from})
		MATCH (b:%s {%s: $to})
		CREATE (a)-[r:%s]->(b)
		SET r += $props
		RETURN count(r) AS created
	`, from.Label, from.Key, to.Label, to.Key, relType)

	records, err := t.collect(ctx, query, map[string]any{
		"from":  from.Value,
		"to":    to.Value,
		"props": map[string]any(props),
	})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64FromRecord(records[0], "created") > 0, nil
}

func (t *neo4jTx) MergeRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		MATCH (a:%s {%s: $from})
		MATCH (b:%s {%s: $to})
		MERGE (a)-[r:%s]->(b)
		ON CREATE SET r.__created = true
		WITH r, r.__created IS NOT NULL AS created
		REMOVE r.__created
		RETURN created
	`, from.Label, from.Key, to.Label, to.Key, relType)

	records, err := t.collect(ctx, query, map[string]any{"from": from.Value, "to": to.Value})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return getBoolFromRecord(records[0], "created"), nil
}

func (t *neo4jTx) HasRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		MATCH (a:%s {%s: $from})-[r:%s]->(b:%s {%s: $to})
		RETURN count(r) AS found
	`, from.Label, from.Key, relType, to.Label, to.Key)

	records, err := t.collect(ctx, query, map[string]any{"from": from.Value, "to": to.Value})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64FromRecord(records[0], "found") > 0, nil
}

func (t *neo4jTx) Related(ctx context.Context, ref Ref, relType string, dir Direction, label string) ([]*Node, error) {
	pattern, err := hopPattern(ref, relType, dir, label)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`MATCH %s RETURN DISTINCT b`, pattern)

	records, err := t.collect(ctx, query, map[string]any{"value": ref.Value})
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(records))
	for _, rec := range records {
		if n := getNodeFromRecord(rec, "b"); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (t *neo4jTx) DeleteRelationships(ctx context.Context, ref Ref, relType string, dir Direction, label string) (int, error) {
	pattern, err := hopPattern(ref, relType, dir, label)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`MATCH %s DELETE r RETURN count(r) AS deleted`, pattern)

	records, err := t.collect(ctx, query, map[string]any{"value": ref.Value})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return int(getInt64FromRecord(records[0], "deleted")), nil
}

// hopPattern renders (a)-[r:TYPE]->(b) anchored on ref, in the requested direction.
func hopPattern(ref Ref, relType string, dir Direction, label string) (string, error) {
	if err := ref.validate(); err != nil {
		return "", err
	}
	if err := validateIdentifier("relationship", relType); err != nil {
		return "", err
	}
	if err := validateLabelFilter(label); err != nil {
		return "", err
	}
	other := "b"
	if label != "" {
		other = "b:" + label
	}
	anchor := fmt.Sprintf("(a:%s {%s: $value})", ref.Label, ref.Key)
	if dir == Incoming {
		return fmt.Sprintf("%s<-[r:%s]-(%s)", anchor, relType, other), nil
	}
	return fmt.Sprintf("%s-[r:%s]->(%s)", anchor, relType, other), nil
}

func validatePair(from Ref, relType string, to Ref) error {
	if err := from.validate(); err != nil {
		return err
	}
	if err := to.validate(); err != nil {
		return err
	}
	return validateIdentifier("relationship", relType)
}

func withoutKey(props Props, key string) Props {
	out := make(Props, len(props))
	for k, v := range props {
		if k != key {
			out[k] = v
		}
	}
	return out
}
