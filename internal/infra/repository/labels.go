package repository

import (
	"context"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/infra/database/models"
)

// InsertLabel upserts an assertion; an existing row for the same
// (src, uri, cid, val) is only replaced by a newer cts.
func (r *IndexRepository) InsertLabel(ctx context.Context, label skymirror.Label) error {
	row := models.Label{
		Src: label.Src,
		URI: label.URI,
		CID: label.CID,
		Val: label.Val,
		Neg: label.Neg,
		Cts: label.Cts,
		Exp: label.Exp,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "src"}, {Name: "uri"}, {Name: "cid"}, {Name: "val"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"neg", "cts", "exp"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "excluded.cts > labels.cts"},
		}},
	}).Create(&row).Error
}

// QueryLabels returns, per (src, uri, val), only the newest assertion,
// excluding negated and expired ones. An empty subject list is an
// empty result, not an error.
func (r *IndexRepository) QueryLabels(ctx context.Context, subjects []string, issuers []string) ([]skymirror.Label, error) {
	if len(subjects) == 0 {
		return []skymirror.Label{}, nil
	}

	subjectConds := make([]string, len(subjects))
	params := make([]any, 0, len(subjects)+len(issuers))
	for i, s := range subjects {
		subjectConds[i] = "l1.uri = ?"
		params = append(params, s)
	}

	query := "SELECT * FROM labels l1 WHERE (" + strings.Join(subjectConds, " OR ") + ")"

	if len(issuers) > 0 {
		issuerConds := make([]string, len(issuers))
		for i, src := range issuers {
			issuerConds[i] = "l1.src = ?"
			params = append(params, src)
		}
		query += " AND (" + strings.Join(issuerConds, " OR ") + ")"
	}

	query += ` AND (l1.exp IS NULL OR l1.exp > CURRENT_TIMESTAMP)
		AND l1.cts = (SELECT MAX(l2.cts) FROM labels l2 WHERE l2.src = l1.src AND l2.uri = l1.uri AND l2.val = l1.val)
		AND l1.neg = 0`

	var rows []models.Label
	if err := r.db.WithContext(ctx).Raw(query, params...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	labels := make([]skymirror.Label, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, skymirror.Label{
			Src: row.Src,
			URI: row.URI,
			CID: row.CID,
			Val: row.Val,
			Neg: row.Neg,
			Cts: row.Cts,
			Exp: row.Exp,
		})
	}
	return labels, nil
}

// ClearLabels drops all assertions, used when a label stream replays
// from scratch after a reconnect.
func (r *IndexRepository) ClearLabels(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("DELETE FROM labels").Error
}
