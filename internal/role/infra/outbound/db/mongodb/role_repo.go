package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

type RoleRepoMongoDB struct {
	client     *mongo.Client
	rolesColl  *mongo.Collection
	outboxColl *mongo.Collection
}

func NewRoleRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*RoleRepoMongoDB, error) {
	db := client.Database(dbName)
	rolesColl := db.Collection("roles")

	_, err := rolesColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roleName", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not ensure roleName index: %w", err)
	}

	return &RoleRepoMongoDB{
		client:     client,
		rolesColl:  rolesColl,
		outboxColl: db.Collection("outbox"),
	}, nil
}

var _ domain.RoleRepository = (*RoleRepoMongoDB)(nil)

type mongoRole struct {
	ID        uuid.UUID `bson:"_id"`
	Name      string    `bson:"roleName"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (r *RoleRepoMongoDB) Create(ctx context.Context, role *domain.Role, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		mr := mongoRole{ID: role.ID, Name: role.Name, CreatedAt: role.CreatedAt, UpdatedAt: role.UpdatedAt}
		if _, err := r.rolesColl.InsertOne(sessCtx, mr); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, sharedDomain.NewConflict(fmt.Sprintf("A role named '%s' already exists.", role.Name))
			}
			return nil, err
		}

		row := bson.M{
			"_id":           evt.ID,
			"aggregateType": evt.AggregateType,
			"aggregateId":   evt.AggregateID,
			"eventType":     evt.EventType,
			"payload":       evt.Payload,
			"createdAt":     evt.CreatedAt,
			"processed":     false,
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, row); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *RoleRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var mr mongoRole
	err := r.rolesColl.FindOne(ctx, bson.M{"_id": id}).Decode(&mr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sharedDomain.NewNotFound("Role", id)
		}
		return nil, err
	}
	return &domain.Role{ID: mr.ID, Name: mr.Name, CreatedAt: mr.CreatedAt, UpdatedAt: mr.UpdatedAt}, nil
}

func (r *RoleRepoMongoDB) ListAll(ctx context.Context) ([]*domain.Role, error) {
	opts := options.Find().SetSort(bson.D{{Key: "roleName", Value: 1}})
	cursor, err := r.rolesColl.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	roles := []*domain.Role{}
	for cursor.Next(ctx) {
		var mr mongoRole
		if err := cursor.Decode(&mr); err != nil {
			return nil, err
		}
		roles = append(roles, &domain.Role{ID: mr.ID, Name: mr.Name, CreatedAt: mr.CreatedAt, UpdatedAt: mr.UpdatedAt})
	}
	return roles, cursor.Err()
}
