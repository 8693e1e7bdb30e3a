package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"lgcms/internal/models"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrVersionConflict   = errors.New("complaint was modified concurrently")
)

type ComplaintRepository struct {
	db      DB
	timeout time.Duration
}

func NewComplaintRepository(db DB, timeout time.Duration) *ComplaintRepository {
	return &ComplaintRepository{db: db, timeout: timeout}
}

const complaintColumns = `id, submitter_id, category, description, status, priority, assignee_id,
	address, latitude, longitude, evidence, responses, created_at, updated_at, resolved_at, version`

func (r *ComplaintRepository) Get(ctx context.Context, id string) (models.Complaint, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Complaint{}, ErrComplaintNotFound
		}
		return models.Complaint{}, classify("get complaint", err)
	}
	return c, nil
}

// Save inserts a complaint whose Version is zero and otherwise updates it only
// if the stored version still matches. The returned complaint carries the new
// version.
func (r *ComplaintRepository) Save(ctx context.Context, c models.Complaint) (models.Complaint, error) {
	evidence, err := json.Marshal(nonNilStrings(c.Evidence))
	if err != nil {
		return models.Complaint{}, fmt.Errorf("encode evidence: %w", err)
	}
	responses, err := json.Marshal(nonNilResponses(c.Responses))
	if err != nil {
		return models.Complaint{}, fmt.Errorf("encode responses: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if c.Version == 0 {
		const insert = `
			INSERT INTO complaints (` + complaintColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		`
		_, err := r.db.Exec(ctx, insert,
			c.ID, c.SubmitterID, c.Category, c.Description, string(c.Status), string(c.Priority), c.AssigneeID,
			c.Location.Address, c.Location.Latitude, c.Location.Longitude, evidence, responses,
			c.CreatedAt, c.UpdatedAt, c.ResolvedAt,
		)
		if err != nil {
			return models.Complaint{}, classify("insert complaint", err)
		}
		c.Version = 1
		return c, nil
	}

	const update = `
		UPDATE complaints SET
			status = $3,
			priority = $4,
			assignee_id = $5,
			responses = $6,
			updated_at = $7,
			resolved_at = $8,
			category = $9,
			description = $10,
			evidence = $11,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	cmd, err := r.db.Exec(ctx, update,
		c.ID, c.Version, string(c.Status), string(c.Priority), c.AssigneeID, responses,
		c.UpdatedAt, c.ResolvedAt, c.Category, c.Description, evidence,
	)
	if err != nil {
		return models.Complaint{}, classify("update complaint", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return models.Complaint{}, classify("update complaint", err)
		}
		if !exists {
			return models.Complaint{}, ErrComplaintNotFound
		}
		return models.Complaint{}, ErrVersionConflict
	}
	c.Version++
	return c, nil
}

func (r *ComplaintRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return classify("delete complaint", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

// Query returns one page of complaints matching filter, newest first, and the
// total number of matches.
func (r *ComplaintRepository) Query(ctx context.Context, filter models.ComplaintFilter, page, pageSize int) ([]models.Complaint, int, error) {
	where, args := buildWhere(filter)

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM complaints`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("count complaints", err)
	}

	if page < 1 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM complaints%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		complaintColumns, where, len(args)-1, len(args))

	items, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// List returns every complaint matching filter. It backs the dashboard
// statistics, which need the full set for the requested scope.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	where, args := buildWhere(filter)

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.collect(ctx, `SELECT `+complaintColumns+` FROM complaints`+where+` ORDER BY created_at DESC, id DESC`, args...)
}

func (r *ComplaintRepository) collect(ctx context.Context, query string, args ...any) ([]models.Complaint, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("query complaints", err)
	}
	defer rows.Close()

	items := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, classify("scan complaint", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query complaints", err)
	}
	return items, nil
}

// likeEscaper makes search text match literally under ILIKE's default
// backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func buildWhere(filter models.ComplaintFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.SubmitterID != "" {
		add("submitter_id = $%d", filter.SubmitterID)
	}
	if filter.AssigneeID != "" {
		add("assignee_id = $%d", filter.AssigneeID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Priority != "" {
		add("priority = $%d", string(filter.Priority))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(description ILIKE $%[1]d OR category ILIKE $%[1]d OR address ILIKE $%[1]d)", "%"+likeEscaper.Replace(s)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanComplaint(row pgx.Row) (models.Complaint, error) {
	var (
		c                   models.Complaint
		status, priority    string
		evidence, responses []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.SubmitterID,
		&c.Category,
		&c.Description,
		&status,
		&priority,
		&c.AssigneeID,
		&c.Location.Address,
		&c.Location.Latitude,
		&c.Location.Longitude,
		&evidence,
		&responses,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ResolvedAt,
		&c.Version,
	); err != nil {
		return models.Complaint{}, err
	}

	var ok bool
	if c.Status, ok = models.ParseComplaintStatus(status); !ok {
		return models.Complaint{}, fmt.Errorf("complaint %s: unknown status %q", c.ID, status)
	}
	if c.Priority, ok = models.ParsePriority(priority); !ok {
		c.Priority = models.DefaultPriority
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &c.Evidence); err != nil {
			return models.Complaint{}, fmt.Errorf("complaint %s: decode evidence: %w", c.ID, err)
		}
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &c.Responses); err != nil {
			return models.Complaint{}, fmt.Errorf("complaint %s: decode responses: %w", c.ID, err)
		}
	}
	return c, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilResponses(v []models.Response) []models.Response {
	if v == nil {
		return []models.Response{}
	}
	return v
}
