package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
	"github.com/skymirror/skymirror/internal/infra/database/models"
)

// IndexRepository owns the record, actor, projection and label tables.
// No other component writes to them.
type IndexRepository struct {
	db  *gorm.DB
	mc  *memcache.Client
	cfg domain.Config
}

// NewIndexRepository creates the repository. mc may be nil, in which
// case record reads always hit the database.
func NewIndexRepository(db *gorm.DB, mc *memcache.Client, cfg domain.Config) *IndexRepository {
	return &IndexRepository{db: db, mc: mc, cfg: cfg}
}

// GetRecords runs the full query pipeline: joins, facet filter,
// indexed-key shortcuts, the general predicate, the cursor condition,
// ordering with the cid tie-break, then the limit. The next cursor is
// derived from the last returned row.
func (r *IndexRepository) GetRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (domain.RecordPage, error) {
	indexedKeys := r.cfg.IndexedKeys(collection)
	params := []any{}

	joins, kvAliases := buildJoins(indexedKeys, &params, opts.Facet)

	query := "SELECT record.* FROM record" + joins + " WHERE record.collection = ?"
	params = append(params, collection)

	if opts.Facet != nil {
		query += " AND facet_index.type = ? AND facet_index.value = ?"
		params = append(params, opts.Facet.Type, opts.Facet.Value)
	}

	// Top-level equality on an indexed key can hit the kv join directly.
	for _, key := range indexedKeys {
		for _, cond := range opts.Where {
			if cond.IsLeaf() && cond.Field == key && cond.Equals != nil {
				query += " AND " + kvAliases[key] + ".value = ?"
				params = append(params, stringify(cond.Equals))
			}
		}
	}

	if len(opts.Where) > 0 {
		compiler := newWhereCompiler(indexedKeys, kvAliases)
		clause, err := compiler.compileAll(opts.Where, &params)
		if err != nil {
			return domain.RecordPage{}, err
		}
		if clause != "" {
			query += " AND (" + clause + ")"
		}
	}

	orderBy := opts.OrderBy
	if len(orderBy) == 0 {
		orderBy = skymirror.DefaultOrder()
	}

	if opts.Cursor != "" {
		cond, err := buildCursorCondition(opts.Cursor, orderBy, &params)
		if err != nil {
			// A stale bookmark, not a caller bug. Serve page one.
			slog.Warn("ignoring invalid cursor",
				slog.String("error", err.Error()),
				slog.String("module", "repository"),
			)
		} else {
			query += " AND " + cond
		}
	}

	query += buildOrder(orderBy)

	if opts.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	var rows []models.Record
	if err := r.db.WithContext(ctx).Raw(query, params...).Scan(&rows).Error; err != nil {
		return domain.RecordPage{}, err
	}

	page := domain.RecordPage{Items: make([]domain.Record, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, hydrate(row))
	}
	if len(rows) > 0 {
		page.Cursor = generateCursor(rows[len(rows)-1], orderBy)
	}

	return page, nil
}

// CountRecords runs the same pipeline minus facet, cursor, order and
// limit, returning the matching row count.
func (r *IndexRepository) CountRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (int64, error) {
	indexedKeys := r.cfg.IndexedKeys(collection)
	params := []any{}

	joins, kvAliases := buildJoins(indexedKeys, &params, nil)

	query := "SELECT COUNT(*) FROM record" + joins + " WHERE record.collection = ?"
	params = append(params, collection)

	for _, key := range indexedKeys {
		for _, cond := range opts.Where {
			if cond.IsLeaf() && cond.Field == key && cond.Equals != nil {
				query += " AND " + kvAliases[key] + ".value = ?"
				params = append(params, stringify(cond.Equals))
			}
		}
	}

	if len(opts.Where) > 0 {
		compiler := newWhereCompiler(indexedKeys, kvAliases)
		clause, err := compiler.compileAll(opts.Where, &params)
		if err != nil {
			return 0, err
		}
		if clause != "" {
			query += " AND (" + clause + ")"
		}
	}

	var count int64
	if err := r.db.WithContext(ctx).Raw(query, params...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetRecord fetches one record by URI, read-through the memcache when
// one is configured.
func (r *IndexRepository) GetRecord(ctx context.Context, uri string) (domain.Record, error) {
	if r.mc != nil {
		if item, err := r.mc.Get(recordCacheKey(uri)); err == nil {
			var row models.Record
			if err := json.Unmarshal(item.Value, &row); err == nil {
				return hydrate(row), nil
			}
		}
	}

	var row models.Record
	err := r.db.WithContext(ctx).Where("uri = ?", uri).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Record{}, domain.NotFoundError{Resource: "record"}
		}
		return domain.Record{}, err
	}

	if r.mc != nil {
		if payload, err := json.Marshal(row); err == nil {
			r.mc.Set(&memcache.Item{Key: recordCacheKey(uri), Value: payload, Expiration: 300})
		}
	}

	return hydrate(row), nil
}

// InsertRecord upserts the record and brings its kv and facet
// projections into lockstep with the payload.
func (r *IndexRepository) InsertRecord(ctx context.Context, raw domain.RawRecord) error {
	rec := toModel(raw)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uri"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cid", "collection", "json", "indexedAt",
		}),
	}).Create(&rec).Error
	if err != nil {
		return err
	}

	return r.syncProjections(ctx, rec)
}

// UpdateRecord replaces the mutable columns of an existing record and
// resyncs its projections.
func (r *IndexRepository) UpdateRecord(ctx context.Context, raw domain.RawRecord) error {
	rec := toModel(raw)
	err := r.db.WithContext(ctx).Model(&models.Record{}).
		Where("uri = ?", rec.URI).
		Updates(map[string]any{
			"cid":        rec.CID,
			"collection": rec.Collection,
			"json":       rec.JSON,
			"indexedAt":  rec.IndexedAt,
		}).Error
	if err != nil {
		return err
	}

	return r.syncProjections(ctx, rec)
}

// DeleteRecord removes the record with its kv rows and facets.
func (r *IndexRepository) DeleteRecord(ctx context.Context, uri string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Record{}, "uri = ?", uri).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.RecordKV{}, "uri = ?", uri).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.FacetIndex{}, "uri = ?", uri).Error; err != nil {
		return err
	}
	r.dropCache(uri)
	return nil
}

// syncProjections diffs the kv projection against the stored keys so
// stale rows disappear, then rebuilds the facet rows wholesale.
func (r *IndexRepository) syncProjections(ctx context.Context, rec models.Record) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(rec.JSON), &payload); err != nil {
		return err
	}

	indexedKeys := r.cfg.IndexedKeys(rec.Collection)
	keySet := make(map[string]struct{}, len(indexedKeys))
	for _, k := range indexedKeys {
		keySet[k] = struct{}{}
	}

	var existing []models.RecordKV
	if err := r.db.WithContext(ctx).Where("uri = ?", rec.URI).Find(&existing).Error; err != nil {
		return err
	}
	for _, kv := range existing {
		_, configured := keySet[kv.Key]
		if !configured || payload[kv.Key] == nil {
			err := r.db.WithContext(ctx).
				Delete(&models.RecordKV{}, "uri = ? AND key = ?", rec.URI, kv.Key).Error
			if err != nil {
				return err
			}
		}
	}

	for _, key := range indexedKeys {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		kv := models.RecordKV{URI: rec.URI, Key: key, Value: stringify(value)}
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uri"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&kv).Error
		if err != nil {
			return err
		}
	}

	if err := r.db.WithContext(ctx).Delete(&models.FacetIndex{}, "uri = ?", rec.URI).Error; err != nil {
		return err
	}
	if facets := extractFacets(rec.URI, payload); len(facets) > 0 {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&facets).Error
		if err != nil {
			return err
		}
	}

	r.dropCache(rec.URI)
	return nil
}

func (r *IndexRepository) dropCache(uri string) {
	if r.mc != nil {
		r.mc.Delete(recordCacheKey(uri))
	}
}

func recordCacheKey(uri string) string { return "record:" + uri }

func toModel(raw domain.RawRecord) models.Record {
	return models.Record{
		URI:        raw.URI,
		CID:        raw.CID,
		DID:        raw.DID,
		Collection: raw.Collection,
		JSON:       raw.JSON,
		IndexedAt:  raw.IndexedAt,
	}
}

func hydrate(row models.Record) domain.Record {
	var value map[string]any
	if err := json.Unmarshal([]byte(row.JSON), &value); err != nil {
		value = map[string]any{}
	}
	return domain.Record{
		URI:        row.URI,
		CID:        row.CID,
		DID:        row.DID,
		Collection: row.Collection,
		IndexedAt:  row.IndexedAt,
		Value:      value,
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
