package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/user/domain"
)

// UserRepoMongoDB implementa UserRepository sobre MongoDB. El rol se
// embebe desnormalizado en el documento de usuario.
type UserRepoMongoDB struct {
	client     *mongo.Client
	usersColl  *mongo.Collection
	outboxColl *mongo.Collection
}

func NewUserRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*UserRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	usersColl := db.Collection("users")

	// Índice único sobre email; los duplicados llegan como E11000.
	_, err := usersColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not ensure email index: %w", err)
	}

	return &UserRepoMongoDB{
		client:     client,
		usersColl:  usersColl,
		outboxColl: db.Collection("outbox"),
	}, nil
}

var _ domain.UserRepository = (*UserRepoMongoDB)(nil)

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoUser struct {
	ID           uuid.UUID  `bson:"_id"`
	FirstName    string     `bson:"firstName"`
	MiddleName   string     `bson:"middleName"`
	LastName     string     `bson:"lastName"`
	DateOfBirth  time.Time  `bson:"dateOfBirth"`
	Gender       string     `bson:"gender"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"passwordHash"`
	PhoneNumber  string     `bson:"phoneNumber"`
	RoleID       *uuid.UUID `bson:"roleId,omitempty"`
	RoleName     string     `bson:"roleName"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

type mongoOutboxEvent struct {
	ID            uuid.UUID   `bson:"_id"`
	AggregateType string      `bson:"aggregateType"`
	AggregateID   string      `bson:"aggregateId"`
	EventType     string      `bson:"eventType"`
	Payload       interface{} `bson:"payload"`
	CreatedAt     time.Time   `bson:"createdAt"`
	Processed     bool        `bson:"processed"`
}

func toMongoUser(u *domain.User) *mongoUser {
	return &mongoUser{
		ID: u.ID, FirstName: u.FirstName, MiddleName: u.MiddleName, LastName: u.LastName,
		DateOfBirth: u.DateOfBirth, Gender: u.Gender, Email: u.Email, PasswordHash: u.PasswordHash,
		PhoneNumber: u.PhoneNumber, RoleID: u.RoleID, RoleName: u.RoleName,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func fromMongoUser(mu *mongoUser) *domain.User {
	return &domain.User{
		ID: mu.ID, FirstName: mu.FirstName, MiddleName: mu.MiddleName, LastName: mu.LastName,
		DateOfBirth: mu.DateOfBirth, Gender: mu.Gender, Email: mu.Email, PasswordHash: mu.PasswordHash,
		PhoneNumber: mu.PhoneNumber, RoleID: mu.RoleID, RoleName: mu.RoleName,
		CreatedAt: mu.CreatedAt, UpdatedAt: mu.UpdatedAt,
	}
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) *mongoOutboxEvent {
	return &mongoOutboxEvent{
		ID: evt.ID, AggregateType: evt.AggregateType, AggregateID: evt.AggregateID,
		EventType: evt.EventType, Payload: evt.Payload, CreatedAt: evt.CreatedAt, Processed: false,
	}
}

func mapDuplicateKey(err error, email string) error {
	if mongo.IsDuplicateKeyError(err) {
		return sharedDomain.NewConflict(fmt.Sprintf("A user with email '%s' already exists.", email))
	}
	return err
}

// --- CRUD Transaccional ---

func (r *UserRepoMongoDB) Create(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// Usuario y evento se insertan atómicamente.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.usersColl.InsertOne(sessCtx, toMongoUser(u)); err != nil {
			return nil, mapDuplicateKey(err, u.Email)
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *UserRepoMongoDB) Update(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		mu := toMongoUser(u)
		res, err := r.usersColl.UpdateOne(sessCtx, bson.M{"_id": mu.ID}, bson.M{"$set": mu})
		if err != nil {
			return nil, mapDuplicateKey(err, u.Email)
		}
		if res.MatchedCount == 0 {
			return nil, sharedDomain.NewNotFound("User", u.ID)
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *UserRepoMongoDB) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.usersColl.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, sharedDomain.NewNotFound("User", id)
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

// --- Lectura ---

func (r *UserRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var mu mongoUser
	err := r.usersColl.FindOne(ctx, bson.M{"_id": id}).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sharedDomain.NewNotFound("User", id)
		}
		return nil, err
	}
	return fromMongoUser(&mu), nil
}

func (r *UserRepoMongoDB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var mu mongoUser
	err := r.usersColl.FindOne(ctx, bson.M{"email": email}).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sharedDomain.NewNotFoundMessage(fmt.Sprintf("User with email '%s' was not found.", email))
		}
		return nil, err
	}
	return fromMongoUser(&mu), nil
}

// --- Compilación de criterios ---

var mongoFields = map[string]string{
	domain.FieldFirstName:   "firstName",
	domain.FieldLastName:    "lastName",
	domain.FieldEmail:       "email",
	domain.FieldPhoneNumber: "phoneNumber",
	domain.FieldGender:      "gender",
	domain.FieldRoleName:    "roleName",
	domain.FieldDateOfBirth: "dateOfBirth",
	domain.FieldCreatedAt:   "createdAt",
}

var searchFields = []string{"firstName", "lastName", "email", "phoneNumber", "roleName"}

// containsRegex escapa el término para tratarlo como subcadena literal.
func containsRegex(value interface{}, insensitive bool) primitive.Regex {
	opts := ""
	if insensitive {
		opts = "i"
	}
	return primitive.Regex{Pattern: regexp.QuoteMeta(fmt.Sprintf("%v", value)), Options: opts}
}

func criteriaToMongoFilter(conds []sharedDomain.Criterion) bson.D {
	filter := bson.D{}
	for _, c := range conds {
		if c.Field == domain.FieldSearch {
			re := containsRegex(c.Value, true)
			or := bson.A{}
			for _, f := range searchFields {
				or = append(or, bson.M{f: re})
			}
			filter = append(filter, bson.E{Key: "$or", Value: or})
			continue
		}

		field, ok := mongoFields[c.Field]
		if !ok {
			continue
		}

		switch c.Op {
		case sharedDomain.OpILike:
			filter = append(filter, bson.E{Key: field, Value: containsRegex(c.Value, true)})
		case sharedDomain.OpLike:
			filter = append(filter, bson.E{Key: field, Value: containsRegex(c.Value, false)})
		case sharedDomain.OpIEq:
			// Regex anclado: igualdad exacta insensible a mayúsculas.
			re := primitive.Regex{
				Pattern: "^" + regexp.QuoteMeta(fmt.Sprintf("%v", c.Value)) + "$",
				Options: "i",
			}
			filter = append(filter, bson.E{Key: field, Value: re})
		case sharedDomain.OpGt:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$gt": c.Value}})
		case sharedDomain.OpGte:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$gte": c.Value}})
		case sharedDomain.OpLt:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$lt": c.Value}})
		case sharedDomain.OpLte:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$lte": c.Value}})
		default:
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$eq": c.Value}})
		}
	}
	return filter
}

// List cuenta el total filtrado y recupera la página solicitada.
func (r *UserRepoMongoDB) List(ctx context.Context, c domain.UserCriteria) ([]*domain.User, int64, error) {
	filter := criteriaToMongoFilter(c.ToConditions())

	total, err := r.usersColl.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	s := c.Sort()
	sortDir := 1
	if s.Desc {
		sortDir = -1
	}

	page := c.PageRequest().Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: mongoFields[s.Field], Value: sortDir}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PageSize))

	cursor, err := r.usersColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []*domain.User{}
	for cursor.Next(ctx) {
		var mu mongoUser
		if err := cursor.Decode(&mu); err != nil {
			return nil, 0, err
		}
		users = append(users, fromMongoUser(&mu))
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *UserRepoMongoDB) ListAll(ctx context.Context) ([]*domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.usersColl.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []*domain.User{}
	for cursor.Next(ctx) {
		var mu mongoUser
		if err := cursor.Decode(&mu); err != nil {
			return nil, err
		}
		users = append(users, fromMongoUser(&mu))
	}
	return users, cursor.Err()
}
