package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/GTDGit/gtd_systempay/internal/cache"
	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

var errNoRows = sql.ErrNoRows

type fakeTrxRepo struct {
	mu      sync.Mutex
	byID    map[int]*models.Transaction
	nextID  int
	sent    []int
	seq     int
	created int
}

func newFakeTrxRepo() *fakeTrxRepo {
	return &fakeTrxRepo{byID: map[int]*models.Transaction{}}
}

func (r *fakeTrxRepo) add(trx *models.Transaction) *models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	trx.ID = r.nextID
	cp := *trx
	r.byID[trx.ID] = &cp
	return trx
}

func (r *fakeTrxRepo) Create(_ context.Context, trx *models.Transaction) error {
	r.mu.Lock()
	for _, t := range r.byID {
		if t.ClientID == trx.ClientID && t.Reference == trx.Reference {
			r.mu.Unlock()
			return fmt.Errorf("duplicate reference")
		}
	}
	r.created++
	r.mu.Unlock()
	r.add(trx)
	return nil
}

func (r *fakeTrxRepo) UpdateForm(_ context.Context, trx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[trx.ID]
	if !ok || t.State != systempay.StateUnset {
		return sql.ErrNoRows
	}
	t.PaymentConfig = trx.PaymentConfig
	t.GatewayTransID = trx.GatewayTransID
	return nil
}

func (r *fakeTrxRepo) get(match func(*models.Transaction) bool) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeTrxRepo) GetByID(_ context.Context, id int) (*models.Transaction, error) {
	return r.get(func(t *models.Transaction) bool { return t.ID == id })
}

func (r *fakeTrxRepo) GetByTransactionID(_ context.Context, transactionID string) (*models.Transaction, error) {
	return r.get(func(t *models.Transaction) bool { return t.TransactionID == transactionID })
}

func (r *fakeTrxRepo) GetByReference(_ context.Context, clientID int, reference string) (*models.Transaction, error) {
	return r.get(func(t *models.Transaction) bool { return t.ClientID == clientID && t.Reference == reference })
}

func (r *fakeTrxRepo) GenerateTransactionID(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("SP-20261014-%06d", r.seq), nil
}

func (r *fakeTrxRepo) MarkCallbackSent(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, id)
	if t, ok := r.byID[id]; ok {
		t.CallbackSent = true
	}
	return nil
}

func (r *fakeTrxRepo) setState(id int, state systempay.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].State = state
}

type fakeForms struct {
	mu        sync.Mutex
	forms     map[string]*cache.PaymentForm
	forgotten []string
}

func newFakeForms() *fakeForms {
	return &fakeForms{forms: map[string]*cache.PaymentForm{}}
}

func (f *fakeForms) Store(_ context.Context, form *cache.PaymentForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms[form.TransactionID] = form
	return nil
}

func (f *fakeForms) Get(_ context.Context, transactionID string) (*cache.PaymentForm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	form, ok := f.forms[transactionID]
	if !ok {
		return nil, cache.ErrFormNotFound
	}
	return form, nil
}

func (f *fakeForms) Forget(_ context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forms, transactionID)
	f.forgotten = append(f.forgotten, transactionID)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	changed []string
}

func (n *recordingNotifier) NotifyTransactionCreated(trx *models.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, trx.TransactionID)
}

func (n *recordingNotifier) NotifyTransactionStateChanged(trx *models.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, trx.TransactionID+":"+string(trx.State))
}

type fakeClientRepo struct {
	mu      sync.Mutex
	clients map[int]*models.Client
	updates int
}

func newFakeClientRepo(clients ...*models.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: map[int]*models.Client{}}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	return r
}

func (r *fakeClientRepo) find(match func(*models.Client) bool) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int) (*models.Client, error) {
	return r.find(func(c *models.Client) bool { return c.ID == id })
}

func (r *fakeClientRepo) GetByClientID(_ context.Context, clientID string) (*models.Client, error) {
	return r.find(func(c *models.Client) bool { return c.ClientID == clientID })
}

func (r *fakeClientRepo) GetByAPIKey(_ context.Context, key string) (*models.Client, error) {
	return r.find(func(c *models.Client) bool { return c.APIKey == key })
}

func (r *fakeClientRepo) GetBySandboxKey(_ context.Context, key string) (*models.Client, error) {
	return r.find(func(c *models.Client) bool { return c.SandboxKey == key })
}

func (r *fakeClientRepo) Create(_ context.Context, client *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	client.ID = len(r.clients) + 1
	client.CreatedAt = time.Now()
	cp := *client
	r.clients[client.ID] = &cp
	return nil
}

func (r *fakeClientRepo) Update(_ context.Context, client *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *client
	r.clients[client.ID] = &cp
	r.updates++
	return nil
}

func (r *fakeClientRepo) List(_ context.Context) ([]*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Client, 0, len(r.clients))
	for _, c := range r.clients {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}
