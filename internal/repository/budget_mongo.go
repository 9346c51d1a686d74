package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

// budgetDocument is the stored shape of an entry in the budgets collection
type budgetDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Amount    float64            `bson:"price"` // field name of existing documents
	Date      time.Time          `bson:"date"`
	UserID    primitive.ObjectID `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *budgetDocument) toEntity() *entities.Budget {
	return &entities.Budget{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Amount:    d.Amount,
		Date:      d.Date,
		UserID:    d.UserID.Hex(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type mongoBudgetRepository struct {
	collection *mongo.Collection
}

// NewMongoBudgetRepository creates a budget repository on a MongoDB collection
func NewMongoBudgetRepository(collection *mongo.Collection) BudgetRepository {
	return &mongoBudgetRepository{collection: collection}
}

// Create inserts a new entry and returns it with its id and timestamps
func (r *mongoBudgetRepository) Create(ctx context.Context, budget *entities.Budget) (*entities.Budget, error) {
	userID, err := primitive.ObjectIDFromHex(budget.UserID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid user id", err)
	}

	now := time.Now().UTC()
	doc := budgetDocument{
		ID:        primitive.NewObjectID(),
		Name:      budget.Name,
		Amount:    budget.Amount,
		Date:      budget.Date,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, apperrors.Storage("create budget", err)
	}
	return doc.toEntity(), nil
}

// FindByID finds an entry by id; malformed ids are treated as absent
func (r *mongoBudgetRepository) FindByID(ctx context.Context, id string) (*entities.Budget, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc budgetDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("find budget", err)
	}
	return doc.toEntity(), nil
}

// Update applies the patch and returns the entry as it is after the update
func (r *mongoBudgetRepository) Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound("budget not found")
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Amount != nil {
		set["price"] = *patch.Amount
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc budgetDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("budget not found")
	}
	if err != nil {
		return nil, apperrors.Storage("update budget", err)
	}
	return doc.toEntity(), nil
}

// Delete removes an entry and returns it, or nil when there was nothing to remove
func (r *mongoBudgetRepository) Delete(ctx context.Context, id string) (*entities.Budget, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc budgetDocument
	err = r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("delete budget", err)
	}
	return doc.toEntity(), nil
}

// Find runs the listing pipeline: filter, newest first, then a facet that
// counts the whole filtered set and slices the requested page from it
func (r *mongoBudgetRepository) Find(ctx context.Context, filter BudgetFilter, page Page) ([]*entities.Budget, int64, error) {
	pipeline, err := r.filterPipeline(filter)
	if err != nil {
		return nil, 0, err
	}

	// $facet rejects empty sub-pipelines, so "no paging" is a no-op match
	paging := bson.A{bson.D{{Key: "$match", Value: bson.D{}}}}
	if page.Limit > 0 {
		paging = bson.A{
			bson.D{{Key: "$skip", Value: max(page.Skip, 0)}},
			bson.D{{Key: "$limit", Value: page.Limit}},
		}
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "n"}}}},
			{Key: "data", Value: paging},
		}}},
	)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, apperrors.Storage("list budgets", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Data []budgetDocument `bson:"data"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, 0, apperrors.Storage("decode budgets", err)
	}

	budgets := make([]*entities.Budget, 0)
	if len(result) == 0 {
		return budgets, 0, nil
	}

	var total int64
	if len(result[0].Total) > 0 {
		total = result[0].Total[0].N
	}
	for i := range result[0].Data {
		budgets = append(budgets, result[0].Data[i].toEntity())
	}
	return budgets, total, nil
}

// SumAmount sums the amount of every matching entry
func (r *mongoBudgetRepository) SumAmount(ctx context.Context, filter BudgetFilter) (float64, error) {
	pipeline, err := r.filterPipeline(filter)
	if err != nil {
		return 0, err
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: nil},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: "$price"}}},
	}}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, apperrors.Storage("sum budgets", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, apperrors.Storage("decode budget sum", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

// GroupSumAmount sums amounts per calendar bucket. The bucket id is built
// server-side with the same "M/D" / "M/YYYY" shape as calendar.DayLabel and
// calendar.MonthLabel.
func (r *mongoBudgetRepository) GroupSumAmount(ctx context.Context, filter BudgetFilter, groupBy GroupBy) (map[string]float64, error) {
	pipeline, err := r.filterPipeline(filter)
	if err != nil {
		return nil, err
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: bucketExpr(groupBy)},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: "$price"}}},
	}}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage("group budgets", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Key   string  `bson:"_id"`
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, apperrors.Storage("decode budget groups", err)
	}

	sums := make(map[string]float64, len(result))
	for _, g := range result {
		sums[g.Key] = g.Total
	}
	return sums, nil
}

func (r *mongoBudgetRepository) filterPipeline(filter BudgetFilter) (mongo.Pipeline, error) {
	userID, err := primitive.ObjectIDFromHex(filter.UserID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid user id", err)
	}

	match := bson.D{{Key: "userId", Value: userID}}
	dateRange := bson.D{}
	if !filter.From.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$gte", Value: filter.From})
	}
	if !filter.To.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$lte", Value: filter.To})
	}
	if len(dateRange) > 0 {
		match = append(match, bson.E{Key: "date", Value: dateRange})
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	if filter.Day != "" {
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.D{{Key: "dateFormatted", Value: bson.D{
				{Key: "$dateToString", Value: bson.D{
					{Key: "format", Value: "%d-%m-%Y"},
					{Key: "date", Value: "$date"},
					{Key: "timezone", Value: filter.zoneName()},
				}},
			}}}}},
			bson.D{{Key: "$match", Value: bson.D{{Key: "dateFormatted", Value: filter.Day}}}},
			bson.D{{Key: "$project", Value: bson.D{{Key: "dateFormatted", Value: 0}}}},
		)
	}
	return pipeline, nil
}

func bucketExpr(groupBy GroupBy) bson.D {
	part := func(op string) bson.D {
		return bson.D{{Key: "$toString", Value: bson.D{{Key: op, Value: bson.D{
			{Key: "date", Value: "$date"},
			{Key: "timezone", Value: groupBy.zoneName()},
		}}}}}
	}

	second := "$dayOfMonth"
	if groupBy.Bucket == BucketMonth {
		second = "$year"
	}
	return bson.D{{Key: "$concat", Value: bson.A{part("$month"), "/", part(second)}}}
}
