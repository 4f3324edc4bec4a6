package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	ierrors "github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/fortune"
)

// SessionSummary is one row of the history listing.
type SessionSummary struct {
	ID            string
	SubjectName   string
	Reason        debate.Reason
	Rounds        int
	StartedAt     time.Time
	Duration      time.Duration
	Contributions int
	Failures      int
}

// SaveReading stores a reading with its transcript and final answers.
// Saving the same session twice replaces the earlier copy.
func (db *DB) SaveReading(ctx context.Context, r *fortune.Reading) error {
	if r == nil || r.Result == nil {
		return fmt.Errorf("storage: save reading: no result")
	}
	res := r.Result

	subject, err := json.Marshal(r.Subject)
	if err != nil {
		return fmt.Errorf("storage: encode subject: %w", err)
	}
	roster, err := json.Marshal(r.Roster)
	if err != nil {
		return fmt.Errorf("storage: encode roster: %w", err)
	}

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, res.SessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, subject_name, subject, lang, roster, input_subject, input_payload,
			 seed_text, final_text, final_round, reason, rounds,
			 verdict_converged, verdict_reason, verdict_round, verdict_score,
			 started_at, duration_ms, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.SessionID, r.Subject.Name, string(subject), r.Lang, string(roster),
			res.Input.Subject, res.Input.Payload,
			res.Seed.Text, res.Final.Text, res.Final.Round, string(res.Reason), res.Rounds,
			boolInt(res.Verdict.Converged), res.Verdict.Reason, res.Verdict.Round, res.Verdict.Score,
			formatTime(res.StartedAt), res.Duration.Milliseconds(), formatTime(time.Now()),
		); err != nil {
			return err
		}

		for i, c := range res.Transcript.Contributions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contributions (session_id, seq, agent_id, round, text, agree, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				res.SessionID, i, c.AgentID, c.Round, c.Text, boolInt(c.Agree), formatTime(c.Timestamp),
			); err != nil {
				return err
			}
		}
		for i, f := range res.Transcript.Failures {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO failures (session_id, seq, agent_id, round, attempt, kind, message, terminal, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				res.SessionID, i, f.AgentID, f.Round, f.Attempt, string(f.Kind), f.Message, boolInt(f.Terminal), formatTime(f.Timestamp),
			); err != nil {
				return err
			}
		}
		for i, a := range r.FinalAnswers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO final_answers (session_id, seq, agent_id, agent_name, text, error)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				res.SessionID, i, a.AgentID, a.AgentName, a.Text, a.Error,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: save reading %s: %w", res.SessionID, err)
	}
	db.logger.Debug("reading saved", "session_id", res.SessionID,
		"contributions", len(res.Transcript.Contributions), "failures", len(res.Transcript.Failures))
	return nil
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns every session.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.db.QueryContext(ctx,
		`SELECT s.id, s.subject_name, s.reason, s.rounds, s.started_at, s.duration_ms,
		 (SELECT COUNT(*) FROM contributions c WHERE c.session_id = s.id),
		 (SELECT COUNT(*) FROM failures f WHERE f.session_id = s.id)
		 FROM sessions s
		 ORDER BY s.started_at DESC, s.id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SessionSummary
	for rows.Next() {
		var (
			s          SessionSummary
			reason     string
			startedAt  string
			durationMs int64
		)
		if err := rows.Scan(&s.ID, &s.SubjectName, &reason, &s.Rounds, &startedAt, &durationMs, &s.Contributions, &s.Failures); err != nil {
			return nil, fmt.Errorf("storage: scan session: %w", err)
		}
		s.Reason = debate.Reason(reason)
		s.StartedAt = parseTime(startedAt)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetReading loads a stored reading. id may be a unique prefix of the
// session id.
func (db *DB) GetReading(ctx context.Context, id string) (*fortune.Reading, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	fullID, err := db.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &fortune.Reading{Result: &debate.Result{SessionID: fullID}}
	res := r.Result
	var (
		subject, roster   string
		reason, startedAt string
		converged         int
		durationMs        int64
	)
	err = db.db.QueryRowContext(ctx,
		`SELECT subject, lang, roster, input_subject, input_payload, seed_text, final_text, final_round,
		 reason, rounds, verdict_converged, verdict_reason, verdict_round, verdict_score, started_at, duration_ms
		 FROM sessions WHERE id = ?`, fullID,
	).Scan(&subject, &r.Lang, &roster, &res.Input.Subject, &res.Input.Payload, &res.Seed.Text, &res.Final.Text, &res.Final.Round,
		&reason, &res.Rounds, &converged, &res.Verdict.Reason, &res.Verdict.Round, &res.Verdict.Score, &startedAt, &durationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get session %s: %w", fullID, err)
	}
	if err := json.Unmarshal([]byte(subject), &r.Subject); err != nil {
		return nil, fmt.Errorf("storage: decode subject: %w", err)
	}
	if err := json.Unmarshal([]byte(roster), &r.Roster); err != nil {
		return nil, fmt.Errorf("storage: decode roster: %w", err)
	}
	res.Reason = debate.Reason(reason)
	res.Verdict.Converged = converged != 0
	res.StartedAt = parseTime(startedAt)
	res.Duration = time.Duration(durationMs) * time.Millisecond

	if res.Transcript.Contributions, err = db.contributions(ctx, fullID); err != nil {
		return nil, err
	}
	if res.Transcript.Failures, err = db.failures(ctx, fullID); err != nil {
		return nil, err
	}
	if r.FinalAnswers, err = db.finalAnswers(ctx, fullID); err != nil {
		return nil, err
	}
	res.Final.Contributions = res.Transcript.ContributionsIn(res.Final.Round)
	return r, nil
}

func (db *DB) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("storage: resolve session id: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

func (db *DB) contributions(ctx context.Context, id string) ([]debate.Contribution, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT agent_id, round, text, agree, created_at FROM contributions WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage: get contributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []debate.Contribution
	for rows.Next() {
		var (
			c     debate.Contribution
			agree int
			ts    string
		)
		if err := rows.Scan(&c.AgentID, &c.Round, &c.Text, &agree, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan contribution: %w", err)
		}
		c.Agree = agree != 0
		c.Timestamp = parseTime(ts)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) failures(ctx context.Context, id string) ([]debate.Failure, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT agent_id, round, attempt, kind, message, terminal, created_at FROM failures WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage: get failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []debate.Failure
	for rows.Next() {
		var (
			f        debate.Failure
			kind, ts string
			terminal int
		)
		if err := rows.Scan(&f.AgentID, &f.Round, &f.Attempt, &kind, &f.Message, &terminal, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan failure: %w", err)
		}
		f.Kind = ierrors.Kind(kind)
		f.Terminal = terminal != 0
		f.Timestamp = parseTime(ts)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) finalAnswers(ctx context.Context, id string) ([]fortune.FinalAnswer, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT agent_id, agent_name, text, error FROM final_answers WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage: get final answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []fortune.FinalAnswer
	for rows.Next() {
		var a fortune.FinalAnswer
		if err := rows.Scan(&a.AgentID, &a.AgentName, &a.Text, &a.Error); err != nil {
			return nil, fmt.Errorf("storage: scan final answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
