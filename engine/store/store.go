// Package store persists Document and Chunk records in Neo4j. Sessions are
// abstracted behind a minimal runner interface so stores can be unit tested
// with fake sessions.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// DB wraps a Neo4j driver and hands out sessions to the stores.
type DB struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// NewDB creates a DB over the given driver.
func NewDB(driver neo4j.DriverWithContext) *DB {
	return &DB{driver: driver}
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (db *DB) session(ctx context.Context) runner {
	if db.newSession != nil {
		return db.newSession(ctx)
	}
	return &sessionAdapter{sess: db.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// nodeProps extracts the property map of the first node in a record.
func nodeProps(rec *neo4j.Record) (map[string]any, error) {
	if rec == nil || len(rec.Values) == 0 {
		return nil, fmt.Errorf("store: empty record")
	}
	node, ok := rec.Values[0].(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("store: record value is %T, not a node", rec.Values[0])
	}
	return node.Props, nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propInt(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func propBool(props map[string]any, key string) bool {
	v, _ := props[key].(bool)
	return v
}

func propInts(props map[string]any, key string) []int {
	raw, ok := props[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		if n, ok := r.(int64); ok {
			out = append(out, int(n))
		}
	}
	return out
}

func propTime(props map[string]any, key string) *time.Time {
	s := propString(props, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
