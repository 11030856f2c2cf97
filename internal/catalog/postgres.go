package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"study-abroad-engine/internal/common/database"
	"study-abroad-engine/internal/models"
)

const defaultTable = "universities"

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const universityColumns = `id, name, country, COALESCE(city, ''),
	COALESCE(min_cgpa, 0), COALESCE(min_gre, 0), COALESCE(min_ielts, 0), COALESCE(min_toefl, 0),
	COALESCE(acceptance_rate, 0), COALESCE(ranking, 0),
	COALESCE(tuition_fee, 0), COALESCE(living_cost, 0), COALESCE(application_fee, 0), COALESCE(other_fees, 0),
	COALESCE(fields, '{}'), COALESCE(type, '')`

// PostgresProvider reads universities from a table with one row per university and the
// offered fields stored as text[].
type PostgresProvider struct {
	db    *database.PostgresClient
	table string
}

func NewPostgresProvider(db *database.PostgresClient, table string) (*PostgresProvider, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	return &PostgresProvider{db: db, table: table}, nil
}

func (p *PostgresProvider) Name() string { return "postgres" }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUniversity(row rowScanner) (models.University, error) {
	var u models.University
	var fields []string
	err := row.Scan(
		&u.ID, &u.Name, &u.Country, &u.City,
		&u.MinCGPA, &u.MinGRE, &u.MinIELTS, &u.MinTOEFL,
		&u.AcceptanceRate, &u.Ranking,
		&u.TuitionFee, &u.LivingCost, &u.ApplicationFee, &u.OtherFees,
		pq.Array(&fields), &u.Type,
	)
	u.Fields = fields
	return u, err
}

func (p *PostgresProvider) GetByID(ctx context.Context, id int64) (*models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", universityColumns, p.table)
	u, err := scanUniversity(p.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query university %d: %w", id, err)
	}
	return &u, nil
}

func (p *PostgresProvider) Search(ctx context.Context, text string) ([]models.University, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return p.list(ctx, "", nil)
	}
	pattern := "%" + escapeLike(text) + "%"
	return p.list(ctx, "name ILIKE $1 OR city ILIKE $1", []interface{}{pattern})
}

func (p *PostgresProvider) Filter(ctx context.Context, f Filter) ([]models.University, error) {
	pred, err := f.Compile()
	if err != nil {
		return nil, err
	}
	where, args := BuildFilterSQL(f)
	rows, err := p.list(ctx, where, args)
	if err != nil {
		return nil, err
	}
	out := make([]models.University, 0, len(rows))
	for _, u := range rows {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// BuildFilterSQL renders the range and type bounds of f as a WHERE clause with positional
// arguments. The other bounds are left to Filter.Matches.
func BuildFilterSQL(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(expr string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}

	if f.MinTuition > 0 {
		add("tuition_fee >= $%d", f.MinTuition)
	}
	if f.MaxTuition > 0 {
		add("tuition_fee <= $%d", f.MaxTuition)
	}
	if f.MaxBudget > 0 {
		add("COALESCE(tuition_fee, 0) + COALESCE(living_cost, 0) <= $%d", f.MaxBudget)
	}
	if f.MaxCGPA > 0 {
		add("COALESCE(min_cgpa, 0) <= $%d", f.MaxCGPA)
	}
	if f.MaxGRE > 0 {
		add("COALESCE(min_gre, 0) <= $%d", f.MaxGRE)
	}
	if f.MaxIELTS > 0 {
		add("COALESCE(min_ielts, 0) <= $%d", f.MaxIELTS)
	}
	if f.MaxTOEFL > 0 {
		add("COALESCE(min_toefl, 0) <= $%d", f.MaxTOEFL)
	}
	if f.MinRanking > 0 {
		add("ranking >= $%d", f.MinRanking)
	}
	if f.MaxRanking > 0 {
		add("ranking <= $%d", f.MaxRanking)
	}
	if f.MinAcceptanceRate > 0 {
		add("acceptance_rate >= $%d", f.MinAcceptanceRate)
	}
	if f.MaxAcceptanceRate > 0 {
		add("acceptance_rate <= $%d", f.MaxAcceptanceRate)
	}
	if t := strings.TrimSpace(f.Type); t != "" {
		add("LOWER(type) = LOWER($%d)", t)
	}
	return strings.Join(clauses, " AND "), args
}

func (p *PostgresProvider) list(ctx context.Context, where string, args []interface{}) ([]models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", universityColumns, p.table)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query universities: %w", err)
	}
	defer rows.Close()

	out := make([]models.University, 0)
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan university: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate universities: %w", err)
	}
	return out, nil
}

// Upsert writes universities in one transaction, replacing rows with the same id.
func (p *PostgresProvider) Upsert(ctx context.Context, universities []models.University) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, name, country, city, min_cgpa, min_gre, min_ielts, min_toefl,
		acceptance_rate, ranking, tuition_fee, living_cost, application_fee, other_fees, fields, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, country = EXCLUDED.country, city = EXCLUDED.city,
			min_cgpa = EXCLUDED.min_cgpa, min_gre = EXCLUDED.min_gre,
			min_ielts = EXCLUDED.min_ielts, min_toefl = EXCLUDED.min_toefl,
			acceptance_rate = EXCLUDED.acceptance_rate, ranking = EXCLUDED.ranking,
			tuition_fee = EXCLUDED.tuition_fee, living_cost = EXCLUDED.living_cost,
			application_fee = EXCLUDED.application_fee, other_fees = EXCLUDED.other_fees,
			fields = EXCLUDED.fields, type = EXCLUDED.type`, p.table)

	return p.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, u := range universities {
			_, err := stmt.ExecContext(ctx,
				u.ID, u.Name, u.Country, u.City,
				u.MinCGPA, u.MinGRE, u.MinIELTS, u.MinTOEFL,
				u.AcceptanceRate, u.Ranking,
				u.TuitionFee, u.LivingCost, u.ApplicationFee, u.OtherFees,
				pq.Array(u.Fields), u.Type,
			)
			if err != nil {
				return fmt.Errorf("upsert university %d: %w", u.ID, err)
			}
		}
		return nil
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
