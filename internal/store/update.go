package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFieldNotAllowed reports a patch against a field outside a node type's
// allow-list, including attempts to rewrite a primary key.
var ErrFieldNotAllowed = errors.New("field not updatable")

// ErrAmbiguousNode reports a plain-text key that matches more than one
// scoped node.
var ErrAmbiguousNode = errors.New("ambiguous node key")

type updateRule struct {
	table  string
	pk     string
	fields map[string]bool
	scoped bool
}

// updateRules is the closed set of patchable node types and fields.
// Primary keys are never patchable.
var updateRules = map[string]updateRule{
	"topic":    {table: "topics", pk: "title", fields: map[string]bool{"summary": true}, scoped: true},
	"task":     {table: "tasks", pk: "description", fields: map[string]bool{"deadline": true, "status": true}, scoped: true},
	"person":   {table: "people", pk: "name", fields: map[string]bool{"role": true}},
	"meeting":  {table: "meetings", pk: "id", fields: map[string]bool{"title": true, "date": true, "source_file": true}},
	"decision": {table: "decisions", pk: "description", fields: map[string]bool{}, scoped: true},
}

// UpdateNodeField patches one field on one node. The node is addressed by
// its primary key; for scoped node types a plain-text key falls back to
// matching decoded values, failing when more than one meeting has a node
// with that text.
func (s *Store) UpdateNodeField(nodeType, key, field, value string) error {
	rule, ok := updateRules[strings.ToLower(strings.TrimSpace(nodeType))]
	if !ok {
		return fmt.Errorf("node type %q: %w", nodeType, ErrFieldNotAllowed)
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if !rule.fields[field] {
		return fmt.Errorf("%s.%s: %w", nodeType, field, ErrFieldNotAllowed)
	}
	if rule.table == "tasks" && field == "status" {
		value = NormalizeTaskStatus(value)
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", rule.table, field, rule.pk)
	res, err := s.db.Exec(stmt, value, key)
	if err != nil {
		return fmt.Errorf("updating %s: %w", nodeType, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	if !rule.scoped || strings.Contains(key, ScopedValueSeparator) {
		return fmt.Errorf("%s %q: %w", nodeType, key, ErrNodeNotFound)
	}

	// Plain-text key against a scoped table: resolve by decoded value.
	resolved, err := s.resolveScopedKey(rule, key)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(stmt, value, resolved); err != nil {
		return fmt.Errorf("updating %s: %w", nodeType, err)
	}
	return nil
}

func (s *Store) resolveScopedKey(rule updateRule, plain string) (string, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s", rule.pk, rule.table))
	if err != nil {
		return "", fmt.Errorf("resolving key %q: %w", plain, err)
	}
	defer rows.Close()

	want := strings.ToLower(strings.TrimSpace(plain))
	var matches []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return "", fmt.Errorf("resolving key %q: %w", plain, err)
		}
		if strings.ToLower(DecodeScopedKey(key)) == want {
			matches = append(matches, key)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", rule.table, plain, ErrNodeNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d nodes (%s): %w",
			plain, len(matches), strings.Join(matches, ", "), ErrAmbiguousNode)
	}
}
