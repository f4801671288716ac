// Package firestore stores journal entries in a Cloud Firestore collection,
// one document per entry with the fields "date" and "entry".
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

const (
	fieldDate  = "date"
	fieldEntry = "entry"
)

// Options selects the project and credentials. With an empty
// CredentialsFile the client uses application default credentials, or the
// emulator when FIRESTORE_EMULATOR_HOST is set.
type Options struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
}

type EntryStore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

var _ domain.EntryStore = (*EntryStore)(nil)

func New(ctx context.Context, opts Options) (*EntryStore, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is empty")
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("firestore collection is empty")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &EntryStore{client: client, collection: opts.Collection, now: time.Now}, nil
}

func (s *EntryStore) Close() error { return s.client.Close() }

func (s *EntryStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *EntryStore) Create(ctx context.Context, text string) (domain.Entry, error) {
	date := domain.FormatDate(s.now())
	created, err := domain.ParseDate(date)
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	ref := s.col().NewDoc()
	if _, err := ref.Create(ctx, map[string]interface{}{
		fieldDate:  date,
		fieldEntry: text,
	}); err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}
	return domain.Entry{ID: ref.ID, CreatedAt: created, Text: text}, nil
}

// List orders by date descending; Firestore breaks ties by document name.
func (s *EntryStore) List(ctx context.Context) ([]domain.Entry, error) {
	docs, err := s.col().OrderBy(fieldDate, firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}

	entries := make([]domain.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := decode(doc)
		if err != nil {
			return nil, domain.NewStorageError("list", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *EntryStore) Update(ctx context.Context, id, text string) error {
	_, err := s.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: fieldEntry, Value: text},
	})
	return s.mapErr("update", id, err)
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	_, err := s.col().Doc(id).Delete(ctx, firestore.Exists)
	return s.mapErr("delete", id, err)
}

// Ping runs the cheapest possible read against the collection.
func (s *EntryStore) Ping(ctx context.Context) error {
	_, err := s.col().Limit(1).Documents(ctx).GetAll()
	return domain.NewStorageError("ping", err)
}

func (s *EntryStore) mapErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return domain.NotFound(id)
	}
	return domain.NewStorageError(op, err)
}

func decode(doc *firestore.DocumentSnapshot) (domain.Entry, error) {
	var raw struct {
		Date  string `firestore:"date"`
		Entry string `firestore:"entry"`
	}
	if err := doc.DataTo(&raw); err != nil {
		return domain.Entry{}, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
	}
	created, err := domain.ParseDate(raw.Date)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
	}
	return domain.Entry{ID: doc.Ref.ID, CreatedAt: created, Text: raw.Entry}, nil
}
