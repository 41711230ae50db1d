package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const writeConflictCode = 112

type mongoTransactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) Transactor {
	return &mongoTransactor{client: client}
}

// NewMongoStore wires every collection of db behind one client-scoped transactor.
func NewMongoStore(client *mongo.Client, db *mongo.Database) Store {
	return Store{
		Objectives:  NewObjectiveRepository(db),
		KeyResults:  NewKeyResultRepository(db),
		Initiatives: NewInitiativeRepository(db),
		CheckIns:    NewCheckInRepository(db),
		Tx:          NewTransactor(client),
	}
}

func (t *mongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	sessionCtx := mongo.NewSessionContext(ctx, session)
	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if err := fn(sessionCtx); err != nil {
		_ = session.AbortTransaction(context.Background())
		return classify(err)
	}
	if err := session.CommitTransaction(sessionCtx); err != nil {
		_ = session.AbortTransaction(context.Background())
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify folds transient transaction failures into ErrConflict.
func classify(err error) error {
	if errors.Is(err, ErrConflict) {
		return err
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("TransientTransactionError") ||
		se.HasErrorLabel("UnknownTransactionCommitResult") ||
		se.HasErrorCode(writeConflictCode)) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
