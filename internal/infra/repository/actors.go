package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skymirror/skymirror/internal/domain"
	"github.com/skymirror/skymirror/internal/infra/database/models"
)

// InsertActor upserts the actor, refreshing handle and indexedAt.
func (r *IndexRepository) InsertActor(ctx context.Context, actor domain.Actor) error {
	row := models.Actor{
		DID:            actor.DID,
		Handle:         actor.Handle,
		LastSeenNotifs: actor.LastSeenNotifs,
		IndexedAt:      actor.IndexedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "did"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "indexedAt"}),
	}).Create(&row).Error
}

func (r *IndexRepository) GetActor(ctx context.Context, did string) (domain.Actor, error) {
	var row models.Actor
	err := r.db.WithContext(ctx).Where("did = ?", did).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Actor{}, domain.NotFoundError{Resource: "actor"}
		}
		return domain.Actor{}, err
	}
	return actorView(row), nil
}

func (r *IndexRepository) GetActorByHandle(ctx context.Context, handle string) (domain.Actor, error) {
	var row models.Actor
	err := r.db.WithContext(ctx).Where("handle = ?", handle).Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Actor{}, domain.NotFoundError{Resource: "actor"}
		}
		return domain.Actor{}, err
	}
	return actorView(row), nil
}

// SearchActors matches handles by substring.
func (r *IndexRepository) SearchActors(ctx context.Context, query string) ([]domain.Actor, error) {
	var rows []models.Actor
	err := r.db.WithContext(ctx).Where("handle LIKE ?", "%"+query+"%").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	actors := make([]domain.Actor, 0, len(rows))
	for _, row := range rows {
		actors = append(actors, actorView(row))
	}
	return actors, nil
}

// UpdateActorSeen advances the notification read high-water mark.
func (r *IndexRepository) UpdateActorSeen(ctx context.Context, did string, lastSeenNotifs string) error {
	result := r.db.WithContext(ctx).Model(&models.Actor{}).
		Where("did = ?", did).
		Update("lastSeenNotifs", lastSeenNotifs)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "actor"}
	}
	return nil
}

// GetMentioningURIs returns URIs of records by other authors whose
// payload references the given DID, most recently touched first.
func (r *IndexRepository) GetMentioningURIs(ctx context.Context, did string) ([]string, error) {
	var uris []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT uri FROM record WHERE json LIKE ? AND did != ?
		 ORDER BY COALESCE(JSON_EXTRACT(json, '$.updatedAt'), JSON_EXTRACT(json, '$.createdAt')) DESC`,
		"%"+did+"%", did,
	).Scan(&uris).Error
	if err != nil {
		return nil, err
	}
	return uris, nil
}

func actorView(row models.Actor) domain.Actor {
	return domain.Actor{
		DID:            row.DID,
		Handle:         row.Handle,
		LastSeenNotifs: row.LastSeenNotifs,
		IndexedAt:      row.IndexedAt,
	}
}
