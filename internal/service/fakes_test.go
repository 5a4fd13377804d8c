package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/gateway"
	"taskflow/internal/model"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. Each one guards its state with a mutex so the
// reconciliation race tests can hammer the payment repo from goroutines; the
// conditional updates mirror the single-document atomicity the Mongo
// implementations get from UpdateOne filters.

type memUserRepo struct {
	mu    sync.Mutex
	users []model.User
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	r.users = append(r.users, *user)
	return user, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		for _, id := range ids {
			if u.ID == id {
				cp := u
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

type memOrgRepo struct {
	mu          sync.Mutex
	orgs        []model.Organization
	activations map[primitive.ObjectID]int
	activateErr error
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{activations: make(map[primitive.ObjectID]int)}
}

func (r *memOrgRepo) Create(_ context.Context, org *model.Organization) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org.ID = primitive.NewObjectID()
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	r.orgs = append(r.orgs, *org)
	return org, nil
}

func (r *memOrgRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orgs {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOrgRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Organization
	for _, o := range r.orgs {
		for _, id := range ids {
			if o.ID == id {
				cp := o
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *memOrgRepo) Activate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activateErr != nil {
		return r.activateErr
	}
	for i := range r.orgs {
		if r.orgs[i].ID == id {
			r.orgs[i].SubscriptionStatus = model.SubscriptionActive
			r.activations[id]++
			return nil
		}
	}
	return errors.New("organization not found")
}

func (r *memOrgRepo) activationCount(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activations[id]
}

type memMembershipRepo struct {
	mu      sync.Mutex
	members []model.OrganizationMember
}

func (r *memMembershipRepo) Create(_ context.Context, member *model.OrganizationMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member.ID = primitive.NewObjectID()
	member.CreatedAt = time.Now()
	r.members = append(r.members, *member)
	return nil
}

func (r *memMembershipRepo) FindByOrgAndUser(_ context.Context, orgID, userID primitive.ObjectID) (*model.OrganizationMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.OrgID == orgID && m.UserID == userID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memMembershipRepo) FindByUser(_ context.Context, userID primitive.ObjectID) ([]*model.OrganizationMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OrganizationMember
	for _, m := range r.members {
		if m.UserID == userID {
			cp := m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMembershipRepo) FindByOrg(_ context.Context, orgID primitive.ObjectID) ([]*model.OrganizationMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OrganizationMember
	for _, m := range r.members {
		if m.OrgID == orgID {
			cp := m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMembershipRepo) UpdateRole(_ context.Context, orgID, userID primitive.ObjectID, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].OrgID == orgID && r.members[i].UserID == userID {
			r.members[i].Role = role
			return nil
		}
	}
	return nil
}

func (r *memMembershipRepo) DeleteByOrgAndUser(_ context.Context, orgID, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].OrgID == orgID && r.members[i].UserID == userID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembershipRepo) CountByOrg(_ context.Context, orgID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.members {
		if m.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (r *memMembershipRepo) CountAdmins(_ context.Context, orgID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.members {
		if m.OrgID == orgID && m.Role == model.RoleAdmin {
			n++
		}
	}
	return n, nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks []model.Task
}

func (r *memTaskRepo) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	r.tasks = append(r.tasks, *task)
	return nil
}

func (r *memTaskRepo) FindByIDAndOrg(_ context.Context, id, orgID primitive.ObjectID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id && t.OrgID == orgID {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) FindByOrg(_ context.Context, orgID primitive.ObjectID, filter model.TaskFilter) ([]*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Task
	for _, t := range r.tasks {
		if t.OrgID != orgID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if !filter.AssignedTo.IsZero() && t.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.IsDaily != nil && t.IsDaily != *filter.IsDaily {
			continue
		}
		cp := t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTaskRepo) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		for key, value := range fields {
			switch key {
			case "title":
				r.tasks[i].Title = value.(string)
			case "description":
				r.tasks[i].Description = value.(string)
			case "status":
				r.tasks[i].Status = value.(string)
			case "assigned_to":
				r.tasks[i].AssignedTo = value.(primitive.ObjectID)
			case "duration_minutes":
				r.tasks[i].DurationMinutes = value.(int)
			case "is_daily":
				r.tasks[i].IsDaily = value.(bool)
			case "due_date":
				due := value.(time.Time)
				r.tasks[i].DueDate = &due
			}
		}
		return nil
	}
	return nil
}

func (r *memTaskRepo) DeleteByIDAndOrg(_ context.Context, id, orgID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id && r.tasks[i].OrgID == orgID {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memTaskRepo) CountByOrg(_ context.Context, orgID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tasks {
		if t.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (r *memTaskRepo) CountByOrgAndStatus(_ context.Context, orgID primitive.ObjectID, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tasks {
		if t.OrgID == orgID && t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memTaskRepo) CountByOrgAndAssignee(_ context.Context, orgID, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tasks {
		if t.OrgID == orgID && t.AssignedTo == userID {
			n++
		}
	}
	return n, nil
}

type memPaymentRepo struct {
	mu  sync.Mutex
	txs []model.PaymentTransaction
}

func (r *memPaymentRepo) Create(_ context.Context, tx *model.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = primitive.NewObjectID()
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *memPaymentRepo) FindBySessionID(_ context.Context, sessionID string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.SessionID == sessionID {
			cp := tx
			return &cp, nil
		}
	}
	return nil, nil
}

// MarkPaidBySession mirrors the Mongo conditional update: under one lock it
// matches only a not-yet-paid transaction and hands the pre-update document
// to exactly one caller.
func (r *memPaymentRepo) MarkPaidBySession(_ context.Context, sessionID, txStatus string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.txs {
		if r.txs[i].SessionID != sessionID || r.txs[i].PaymentStatus == model.PaymentStatusPaid {
			continue
		}
		prev := r.txs[i]
		r.txs[i].PaymentStatus = model.PaymentStatusPaid
		r.txs[i].Status = txStatus
		r.txs[i].UpdatedAt = time.Now()
		return &prev, nil
	}
	return nil, nil
}

func (r *memPaymentRepo) UpdateStatusBySession(_ context.Context, sessionID, status, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.txs {
		if r.txs[i].SessionID == sessionID && r.txs[i].PaymentStatus != model.PaymentStatusPaid {
			r.txs[i].Status = status
			r.txs[i].PaymentStatus = paymentStatus
			r.txs[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *memPaymentRepo) RestoreBySession(_ context.Context, sessionID, paymentStatus, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.txs {
		if r.txs[i].SessionID == sessionID && r.txs[i].PaymentStatus == model.PaymentStatusPaid {
			r.txs[i].PaymentStatus = paymentStatus
			r.txs[i].Status = status
			r.txs[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

type memSysAdminRepo struct {
	mu     sync.Mutex
	admins []model.SysAdmin
}

func (r *memSysAdminRepo) Create(_ context.Context, admin *model.SysAdmin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin.ID = primitive.NewObjectID()
	admin.CreatedAt = time.Now()
	r.admins = append(r.admins, *admin)
	return nil
}

func (r *memSysAdminRepo) ExistsByUserID(_ context.Context, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type memAdminConfigRepo struct {
	mu      sync.Mutex
	entries []model.AdminConfig
}

func (r *memAdminConfigRepo) List(_ context.Context) ([]*model.AdminConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.AdminConfig, 0, len(r.entries))
	for _, e := range r.entries {
		cp := e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memAdminConfigRepo) Upsert(_ context.Context, cfg *model.AdminConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range r.entries {
		if r.entries[i].KeyName == cfg.KeyName {
			r.entries[i].Value = cfg.Value
			r.entries[i].IsSecret = cfg.IsSecret
			r.entries[i].UpdatedBy = cfg.UpdatedBy
			r.entries[i].UpdatedAt = now
			return nil
		}
	}
	cfg.ID = primitive.NewObjectID()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	r.entries = append(r.entries, *cfg)
	return nil
}

func (r *memAdminConfigRepo) DeleteByKey(_ context.Context, keyName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].KeyName == keyName {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeGateway scripts the payment provider. Sessions report whatever status
// the test installs; ParseEvent returns the installed event without looking
// at the payload, standing in for a verified decode.
type fakeGateway struct {
	mu            sync.Mutex
	createSession *gateway.Session
	createErr     error
	created       []gateway.CreateSessionParams
	sessions      map[string]*gateway.Session
	getErr        error
	getCalls      int
	event         *gateway.Event
	parseErr      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*gateway.Session)}
}

func (g *fakeGateway) CreateSession(_ context.Context, params gateway.CreateSessionParams) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, params)
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createSession != nil {
		cp := *g.createSession
		return &cp, nil
	}
	return &gateway.Session{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1", Status: "open", PaymentStatus: "unpaid"}, nil
}

func (g *fakeGateway) GetSession(_ context.Context, sessionID string) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	sess, ok := g.sessions[sessionID]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) ParseEvent(_ []byte, _ string) (*gateway.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	if g.event == nil {
		return &gateway.Event{Type: "noop"}, nil
	}
	cp := *g.event
	return &cp, nil
}

func (g *fakeGateway) getCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getCalls
}

// fixture wires every service over the fakes the way the server registry
// wires them over Mongo.
type fixture struct {
	users       *memUserRepo
	orgs        *memOrgRepo
	memberships *memMembershipRepo
	tasks       *memTaskRepo
	payments    *memPaymentRepo
	sysAdmins   *memSysAdminRepo
	configs     *memAdminConfigRepo
	gateway     *fakeGateway

	authz       *Authorizer
	orgService  *OrgService
	taskService *TaskService
	payService  *PaymentService
	adminSvc    *AdminService
}

func newFixture() *fixture {
	f := &fixture{
		users:       &memUserRepo{},
		orgs:        newMemOrgRepo(),
		memberships: &memMembershipRepo{},
		tasks:       &memTaskRepo{},
		payments:    &memPaymentRepo{},
		sysAdmins:   &memSysAdminRepo{},
		configs:     &memAdminConfigRepo{},
		gateway:     newFakeGateway(),
	}
	f.authz = NewAuthorizer(f.memberships, f.sysAdmins)
	f.orgService = NewOrgService(f.orgs, f.memberships, f.users, f.tasks, f.authz)
	f.taskService = NewTaskService(f.tasks, f.users, f.memberships, f.authz)
	f.payService = NewPaymentService(f.payments, f.orgs, f.gateway, config.Packages(), f.authz)
	f.adminSvc = NewAdminService(f.configs, f.sysAdmins, f.users, f.authz)
	return f
}

func (f *fixture) addUser(email, fullName string) *model.User {
	user, _ := f.users.Create(context.Background(), &model.User{
		Email:        email,
		PasswordHash: "$2a$12$fake",
		FullName:     fullName,
	})
	return user
}

func (f *fixture) addOrg(name string, creator primitive.ObjectID) *model.Organization {
	org, _ := f.orgs.Create(context.Background(), &model.Organization{
		Name:               name,
		SubscriptionStatus: model.SubscriptionFree,
		CreatedBy:          creator,
	})
	_ = f.memberships.Create(context.Background(), &model.OrganizationMember{
		UserID: creator,
		OrgID:  org.ID,
		Role:   model.RoleAdmin,
	})
	return org
}

func (f *fixture) addMember(orgID, userID primitive.ObjectID, role model.Role) {
	_ = f.memberships.Create(context.Background(), &model.OrganizationMember{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
	})
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
