package persistence

import (
	"context"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const schedulesCollection = "schedules"

// ScheduleRepositoryMongo stores schedules as documents keyed by string _id.
type ScheduleRepositoryMongo struct {
	coll *mongo.Collection
}

func NewScheduleRepositoryMongo(db *mongo.Database) repository.ISchedule {
	return &ScheduleRepositoryMongo{coll: db.Collection(schedulesCollection)}
}

func (r *ScheduleRepositoryMongo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var s model.Schedule
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ClaimDue claims documents one at a time; each FindOneAndUpdate is atomic so
// two runners never claim the same schedule.
func (r *ScheduleRepositoryMongo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Schedule, error) {
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetReturnDocument(options.After)

	var out []*model.Schedule
	for len(out) < limit {
		var s model.Schedule
		err := r.coll.FindOneAndUpdate(ctx, dueFilter(now), claimUpdate(now), opts).Decode(&s)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			if len(out) > 0 {
				logger.GetLogger().WithField("error", err).WithField("claimed", len(out)).Warn("Schedule claim interrupted")
				return out, nil
			}
			return nil, err
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *ScheduleRepositoryMongo) ClaimByID(ctx context.Context, id string, now time.Time) (*model.Schedule, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s model.Schedule
	err := r.coll.FindOneAndUpdate(ctx, claimByIDFilter(id), claimUpdate(now), opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrScheduleNotClaimable
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepositoryMongo) RecordOutcome(ctx context.Context, id string, o model.ScheduleOutcome) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, outcomeUpdate(o))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrScheduleNotFound
	}
	return nil
}

func dueFilter(now time.Time) bson.D {
	return bson.D{
		{Key: "status", Value: string(model.ScheduleQueued)},
		{Key: "scheduled_at", Value: bson.D{{Key: "$lte", Value: now}}},
	}
}

func claimByIDFilter(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{
			string(model.ScheduleQueued),
			string(model.ScheduleFailed),
		}}}},
	}
}

func claimUpdate(now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(model.ScheduleProcessing)},
		{Key: "updated_at", Value: now},
	}}}
}

func outcomeUpdate(o model.ScheduleOutcome) bson.D {
	set := bson.D{
		{Key: "status", Value: string(o.Status)},
		{Key: "updated_at", Value: o.UpdatedAt},
	}
	var unset bson.D
	if o.PublishID != nil {
		set = append(set, bson.E{Key: "publish_id", Value: *o.PublishID})
	}
	if o.TikTokURL != nil {
		set = append(set, bson.E{Key: "tiktok_url", Value: *o.TikTokURL})
	} else {
		unset = append(unset, bson.E{Key: "tiktok_url", Value: ""})
	}
	if o.LastError != nil {
		set = append(set, bson.E{Key: "last_error", Value: *o.LastError})
	} else {
		unset = append(unset, bson.E{Key: "last_error", Value: ""})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}
