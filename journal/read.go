package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Dispatches returns the recorded dispatches of session ordered by cycle,
// then by stream. Rows queued but not yet written are not included; call
// Sync first to see them.
func (j *Journal) Dispatches(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session, stream, cycle, at_unix_nano, late, lateness_ns, params_json, mutation
		FROM dispatches
		WHERE session = ?
		ORDER BY cycle ASC, stream COLLATE BINARY ASC, id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("journal: query dispatches: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e         Entry
			atNano    int64
			lateness  int64
			rawParams string
		)
		if err := rows.Scan(&e.Session, &e.Stream, &e.Cycle, &atNano, &e.Late, &lateness, &rawParams, &e.Mutation); err != nil {
			return nil, fmt.Errorf("journal: scan dispatch: %w", err)
		}
		e.At = time.Unix(0, atNano)
		e.Lateness = time.Duration(lateness)
		if err := json.Unmarshal([]byte(rawParams), &e.Params); err != nil {
			return nil, fmt.Errorf("journal: %s cycle %.4f params: %w", e.Stream, e.Cycle, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate dispatches: %w", err)
	}
	return entries, nil
}

// Problems returns the recorded diagnostics of session in recording order.
func (j *Journal) Problems(ctx context.Context, session string) ([]Problem, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session, kind, stream, cycle, message
		FROM diagnostics
		WHERE session = ?
		ORDER BY id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("journal: query diagnostics: %w", err)
	}
	defer rows.Close()

	problems := []Problem{}
	for rows.Next() {
		var p Problem
		if err := rows.Scan(&p.Session, &p.Kind, &p.Stream, &p.Cycle, &p.Message); err != nil {
			return nil, fmt.Errorf("journal: scan diagnostic: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate diagnostics: %w", err)
	}
	return problems, nil
}

// Sessions returns every session id with recorded dispatches, oldest first.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session FROM dispatches GROUP BY session ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("journal: query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate sessions: %w", err)
	}
	return ids, nil
}
