package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// MongoWorkOrderStore is a WorkOrderStore backed by MongoDB.
type MongoWorkOrderStore struct {
	coll *mongo.Collection
}

// Ensure it implements WorkOrderStore.
var _ WorkOrderStore = (*MongoWorkOrderStore)(nil)

// NewMongoWorkOrderStore creates a Mongo-backed work order store.
// dbName defaults to "wrench" if empty, collName defaults to "work_orders".
func NewMongoWorkOrderStore(client *mongo.Client, dbName, collName string) *MongoWorkOrderStore {
	if dbName == "" {
		dbName = "wrench"
	}
	if collName == "" {
		collName = "work_orders"
	}

	return &MongoWorkOrderStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoWorkOrderDoc struct {
	ID               string `bson:"_id"`
	Number           string `bson:"number"`
	Title            string `bson:"title"`
	Description      string `bson:"description,omitempty"`
	Status           string `bson:"status"`
	Priority         string `bson:"priority"`
	WorkType         string `bson:"work_type"`
	AssetID          string `bson:"asset_id,omitempty"`
	CreatedBy        string `bson:"created_by,omitempty"`
	AssigneeID       string `bson:"assignee_id,omitempty"`
	RequiredSkills   []byte `bson:"required_skills,omitempty"`
	Tags             []byte `bson:"tags,omitempty"`
	PendingApprovers []byte `bson:"pending_approvers,omitempty"`
	Approvals        []byte `bson:"approvals,omitempty"`
	CompletionNotes  string `bson:"completion_notes,omitempty"`
	SLA              []byte `bson:"sla,omitempty"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
	LeaseOwner       string `bson:"lease_owner,omitempty"`
	LeaseExpiresAt   int64  `bson:"lease_expires_at,omitempty"`
}

func toMongoDoc(wo *api.WorkOrder) (*mongoWorkOrderDoc, error) {
	skills, err := EncodeValue(wo.RequiredSkills)
	if err != nil {
		return nil, err
	}
	tags, err := EncodeValue(wo.Tags)
	if err != nil {
		return nil, err
	}
	pending, err := EncodeValue(wo.PendingApprovers)
	if err != nil {
		return nil, err
	}
	approvals, err := EncodeValue(wo.Approvals)
	if err != nil {
		return nil, err
	}
	var slaBytes []byte
	if wo.SLA != nil {
		slaBytes, err = EncodeValue(*wo.SLA)
		if err != nil {
			return nil, err
		}
	}

	return &mongoWorkOrderDoc{
		ID:               wo.ID,
		Number:           wo.Number,
		Title:            wo.Title,
		Description:      wo.Description,
		Status:           string(wo.Status),
		Priority:         string(wo.Priority),
		WorkType:         string(wo.WorkType),
		AssetID:          wo.AssetID,
		CreatedBy:        wo.CreatedBy,
		AssigneeID:       wo.AssigneeID,
		RequiredSkills:   skills,
		Tags:             tags,
		PendingApprovers: pending,
		Approvals:        approvals,
		CompletionNotes:  wo.CompletionNotes,
		SLA:              slaBytes,
		CreatedAt:        wo.CreatedAt.UnixNano(),
		UpdatedAt:        wo.UpdatedAt.UnixNano(),
	}, nil
}

func fromMongoDoc(doc *mongoWorkOrderDoc) (*api.WorkOrder, error) {
	skills, err := DecodeValue[[]string](doc.RequiredSkills)
	if err != nil {
		return nil, err
	}
	tags, err := DecodeValue[[]string](doc.Tags)
	if err != nil {
		return nil, err
	}
	pending, err := DecodeValue[[]string](doc.PendingApprovers)
	if err != nil {
		return nil, err
	}
	approvals, err := DecodeValue[[]api.Approval](doc.Approvals)
	if err != nil {
		return nil, err
	}

	wo := &api.WorkOrder{
		ID:               doc.ID,
		Number:           doc.Number,
		Title:            doc.Title,
		Description:      doc.Description,
		Status:           api.Status(doc.Status),
		Priority:         api.Priority(doc.Priority),
		WorkType:         api.WorkType(doc.WorkType),
		AssetID:          doc.AssetID,
		CreatedBy:        doc.CreatedBy,
		AssigneeID:       doc.AssigneeID,
		RequiredSkills:   skills,
		Tags:             tags,
		PendingApprovers: pending,
		Approvals:        approvals,
		CompletionNotes:  doc.CompletionNotes,
		CreatedAt:        time.Unix(0, doc.CreatedAt),
		UpdatedAt:        time.Unix(0, doc.UpdatedAt),
	}
	if len(doc.SLA) > 0 {
		sla, err := DecodeValue[api.SLA](doc.SLA)
		if err != nil {
			return nil, err
		}
		wo.SLA = &sla
	}
	return wo, nil
}

func (s *MongoWorkOrderStore) SaveWorkOrder(wo *api.WorkOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, err := toMongoDoc(wo)
	if err != nil {
		return err
	}

	_, err = s.coll.InsertOne(ctx, doc)
	// If duplicate ID happens, caller may treat it as an error; we just return it.
	return err
}

func (s *MongoWorkOrderStore) UpdateWorkOrder(wo *api.WorkOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, err := toMongoDoc(wo)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"number":            doc.Number,
			"title":             doc.Title,
			"description":       doc.Description,
			"status":            doc.Status,
			"priority":          doc.Priority,
			"work_type":         doc.WorkType,
			"asset_id":          doc.AssetID,
			"created_by":        doc.CreatedBy,
			"assignee_id":       doc.AssigneeID,
			"required_skills":   doc.RequiredSkills,
			"tags":              doc.Tags,
			"pending_approvers": doc.PendingApprovers,
			"approvals":         doc.Approvals,
			"completion_notes":  doc.CompletionNotes,
			"sla":               doc.SLA,
			"updated_at":        doc.UpdatedAt,
		},
	}

	res, err := s.coll.UpdateByID(ctx, wo.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrWorkOrderNotFound
	}
	return nil
}

func (s *MongoWorkOrderStore) GetWorkOrder(id string) (*api.WorkOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var doc mongoWorkOrderDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}

	return fromMongoDoc(&doc)
}

func (s *MongoWorkOrderStore) ListWorkOrders(filter Filter) ([]*api.WorkOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bfilter := bson.M{}
	if filter.Status != "" {
		bfilter["status"] = string(filter.Status)
	}
	if filter.AssigneeID != "" {
		bfilter["assignee_id"] = filter.AssigneeID
	}
	if filter.Priority != "" {
		bfilter["priority"] = string(filter.Priority)
	}
	if filter.ActiveOnly {
		bfilter["status"] = bson.M{
			"$nin": []string{
				string(api.StatusRejected),
				string(api.StatusCompleted),
				string(api.StatusCancelled),
			},
		}
		if filter.Status != "" {
			// A concrete status filter wins; keep it and let Match drop
			// terminal records.
			bfilter["status"] = string(filter.Status)
		}
	}

	cur, err := s.coll.Find(ctx, bfilter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []*api.WorkOrder

	for cur.Next(ctx) {
		var doc mongoWorkOrderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}

		wo, err := fromMongoDoc(&doc)
		if err != nil {
			return nil, err
		}
		// WithSLA (and any residual field) is applied payload-side.
		if !filter.Match(wo) {
			continue
		}
		results = append(results, wo)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MongoWorkOrderStore) TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl).UnixNano()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"_id": workOrderID,
			"$or": []bson.M{
				{"lease_owner": bson.M{"$in": []any{"", nil}}},
				{"lease_expires_at": bson.M{"$lte": now.UnixNano()}},
				{"lease_owner": owner},
			},
		},
		bson.M{"$set": bson.M{"lease_owner": owner, "lease_expires_at": expires}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoWorkOrderStore) RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error {
	expires := time.Now().Add(ttl).UnixNano()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": workOrderID, "lease_owner": owner},
		bson.M{"$set": bson.M{"lease_expires_at": expires}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return api.ErrWorkOrderLocked
	}
	return nil
}

func (s *MongoWorkOrderStore) ReleaseLease(ctx context.Context, workOrderID, owner string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": workOrderID, "lease_owner": owner},
		bson.M{"$set": bson.M{"lease_owner": "", "lease_expires_at": 0}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Not held by us: absent and already-released are both fine, a live
	// lease under another owner is not.
	var doc mongoWorkOrderDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": workOrderID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
	if doc.LeaseOwner == "" || doc.LeaseOwner == owner || doc.LeaseExpiresAt <= time.Now().UnixNano() {
		return nil
	}
	return api.ErrWorkOrderLocked
}
