package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakit-io/datakit/cache"
	"github.com/datakit-io/datakit/pagination"
	"github.com/datakit-io/datakit/query"
	"github.com/datakit-io/datakit/repo"
	"github.com/datakit-io/datakit/service"
)

type item struct {
	ID   int64  `msgpack:"id"`
	Name string `msgpack:"name"`
}

// stubRepo is an in-memory BaseRepository used to isolate the service layer.
type stubRepo struct {
	mu       sync.Mutex
	items    map[int64]item
	nextID   int64
	findByID int
}

var _ repo.BaseRepository[item, int64] = (*stubRepo)(nil)

func newStubRepo(seed ...item) *stubRepo {
	r := &stubRepo{items: make(map[int64]item), nextID: 1}
	for _, it := range seed {
		r.items[it.ID] = it
		if it.ID >= r.nextID {
			r.nextID = it.ID + 1
		}
	}
	return r
}

func (r *stubRepo) findByIDCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByID
}

func (r *stubRepo) FindByID(_ context.Context, id int64) (*item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByID++
	it, ok := r.items[id]
	if !ok {
		return nil, errx.New("item not found", errx.WithCode(repo.CodeNotFound))
	}
	return &it, nil
}

func (r *stubRepo) FindAllByIDs(_ context.Context, ids []int64) ([]item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []item
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *stubRepo) FindAll(context.Context, ...query.Spec) ([]item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *stubRepo) FindOne(context.Context, ...query.Spec) (*item, error) {
	return nil, errx.New("item not found", errx.WithCode(repo.CodeNotFound))
}

func (r *stubRepo) FirstOrNil(context.Context, ...query.Spec) (*item, error) {
	return nil, nil
}

func (r *stubRepo) FindLatest(_ context.Context, limit int) ([]item, error) {
	all, _ := r.FindAll(context.Background())
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *stubRepo) FindPage(
	ctx context.Context,
	req pagination.Request,
	_ ...query.Spec,
) (pagination.Page[item], error) {
	all, _ := r.FindAll(ctx)
	req.Normalize()
	return pagination.NewPage(all, int64(len(all)), req), nil
}

func (r *stubRepo) Count(context.Context, ...query.Spec) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *stubRepo) Exists(context.Context, ...query.Spec) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items) > 0, nil
}

func (r *stubRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	return ok, nil
}

func (r *stubRepo) ExistsByProperty(context.Context, string, string) (bool, error) {
	return false, nil
}

func (r *stubRepo) SearchProperty(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (r *stubRepo) Save(_ context.Context, e *item) (*item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *e
	saved.ID = r.nextID
	r.nextID++
	r.items[saved.ID] = saved
	return &saved, nil
}

func (r *stubRepo) SaveAll(ctx context.Context, entities []item) error {
	for i := range entities {
		if _, err := r.Save(ctx, &entities[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRepo) Update(_ context.Context, e *item) (*item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[e.ID]; !ok {
		return nil, errx.New("no rows updated", errx.WithCode(repo.CodeIncorrectAffection))
	}
	r.items[e.ID] = *e
	return e, nil
}

func (r *stubRepo) Delete(ctx context.Context, e *item) error {
	return r.DeleteByID(ctx, e.ID)
}

func (r *stubRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return errx.New("no rows deleted", errx.WithCode(repo.CodeIncorrectAffection))
	}
	delete(r.items, id)
	return nil
}

func (r *stubRepo) DeleteAllByIDs(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubRepo) DeleteAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(len(r.items))
	r.items = make(map[int64]item)
	return deleted, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewWithClient(client, cache.Config{Addrs: srv.Addr(), KeyPrefix: "svc-test"})
}

func TestServiceEntityName(t *testing.T) {
	svc := service.NewService[item, int64](newStubRepo())
	assert.Equal(t, "item", svc.EntityName())

	named := service.NewService[item, int64](newStubRepo(), service.WithEntityName("catalog_item"))
	assert.Equal(t, "catalog_item", named.EntityName())
}

func TestServiceFindByIDCacheFirst(t *testing.T) {
	r := newStubRepo(item{ID: 1, Name: "alpha"})
	svc := service.NewService[item, int64](r, service.WithCache(newTestCache(t)))
	ctx := context.Background()

	first, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Name)
	assert.Equal(t, 1, r.findByIDCalls())

	// Second read is served from the cache.
	second, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", second.Name)
	assert.Equal(t, 1, r.findByIDCalls())
}

func TestServiceFindByIDWithoutCache(t *testing.T) {
	r := newStubRepo(item{ID: 1, Name: "alpha"})
	svc := service.NewService[item, int64](r)
	ctx := context.Background()

	_, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	_, err = svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, r.findByIDCalls())
}

func TestServiceFindByIDNotFound(t *testing.T) {
	svc := service.NewService[item, int64](newStubRepo())

	_, err := svc.FindByID(context.Background(), 404)
	require.Error(t, err)
}

func TestServiceWriteDropsCacheRegion(t *testing.T) {
	r := newStubRepo(item{ID: 1, Name: "alpha"})
	svc := service.NewService[item, int64](r, service.WithCache(newTestCache(t)))
	ctx := context.Background()

	_, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, r.findByIDCalls())

	updated, err := svc.Update(ctx, &item{ID: 1, Name: "beta"})
	require.NoError(t, err)
	assert.Equal(t, "beta", updated.Name)
	svc.WaitNotifications()

	// The stale cached entity must be gone after the write.
	reread, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "beta", reread.Name)
	assert.Equal(t, 2, r.findByIDCalls())
}

func TestServiceFindLatestCached(t *testing.T) {
	r := newStubRepo(item{ID: 1, Name: "alpha"}, item{ID: 2, Name: "beta"})
	svc := service.NewService[item, int64](r, service.WithCache(newTestCache(t)))
	ctx := context.Background()

	first, err := svc.FindLatest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// Served from cache even after direct repo changes.
	_, err = r.Save(ctx, &item{Name: "gamma"})
	require.NoError(t, err)

	second, err := svc.FindLatest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestServiceNotifiesObserversOnWrite(t *testing.T) {
	svc := service.NewService[item, int64](newStubRepo())

	events := make(chan service.ChangeEvent, 4)
	svc.RegisterObservers(service.ObserverFunc(func(_ context.Context, e service.ChangeEvent) error {
		events <- e
		return nil
	}))

	_, err := svc.Save(context.Background(), &item{Name: "alpha"})
	require.NoError(t, err)
	svc.WaitNotifications()

	select {
	case e := <-events:
		assert.Equal(t, "item", e.Entity)
		assert.Equal(t, service.OpCreate, e.Op)
	default:
		t.Fatal("expected a change event after Save")
	}
}

func TestServiceDeleteAllByIDsNotifiesWithKeys(t *testing.T) {
	r := newStubRepo(item{ID: 1}, item{ID: 2}, item{ID: 3})
	svc := service.NewService[item, int64](r)

	events := make(chan service.ChangeEvent, 1)
	svc.RegisterObservers(service.ObserverFunc(func(_ context.Context, e service.ChangeEvent) error {
		events <- e
		return nil
	}))

	deleted, err := svc.DeleteAllByIDs(context.Background(), []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	svc.WaitNotifications()

	e := <-events
	assert.Equal(t, service.OpDelete, e.Op)
	assert.Equal(t, []string{"1", "3", "99"}, e.Keys)
}

func TestServiceObserverRetries(t *testing.T) {
	svc := service.NewService[item, int64](newStubRepo(), service.WithNotifyAttempts(3))

	var calls atomic.Int32
	svc.RegisterObservers(service.ObserverFunc(func(context.Context, service.ChangeEvent) error {
		if calls.Add(1) < 3 {
			return errx.New("transient failure")
		}
		return nil
	}))

	_, err := svc.Save(context.Background(), &item{Name: "alpha"})
	require.NoError(t, err)
	svc.WaitNotifications()

	assert.Equal(t, int32(3), calls.Load())
}

func TestServiceOnEntityChangedDropsOwnRegion(t *testing.T) {
	r := newStubRepo(item{ID: 1, Name: "alpha"})
	svc := service.NewService[item, int64](r, service.WithCache(newTestCache(t)))
	ctx := context.Background()

	_, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, r.findByIDCalls())

	// A watched peer entity changed: derived cache entries must go.
	require.NoError(t, svc.OnEntityChanged(ctx, service.ChangeEvent{Entity: "peer", Op: service.OpUpdate}))

	_, err = svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, r.findByIDCalls())
}

func TestServiceCrossInstanceInvalidation(t *testing.T) {
	srv := miniredis.RunT(t)
	newCache := func() *cache.Cache {
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return cache.NewWithClient(client, cache.Config{Addrs: srv.Addr(), KeyPrefix: "svc-test"})
	}

	writer := service.NewService[item, int64](newStubRepo(), service.WithCache(newCache()))
	reader := service.NewService[item, int64](newStubRepo(item{ID: 1}), service.WithCache(newCache()))

	events := make(chan service.ChangeEvent, 4)
	reader.RegisterObservers(service.ObserverFunc(func(_ context.Context, e service.ChangeEvent) error {
		events <- e
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = reader.ListenRemoteInvalidations(ctx) }()

	// Publish until the subscriber is attached and the event arrives.
	require.Eventually(t, func() bool {
		writer.Notify(ctx, service.ChangeEvent{Entity: "item", Op: service.OpUpdate})
		select {
		case e := <-events:
			assert.Equal(t, "item", e.Entity)
			assert.Equal(t, service.OpUpdate, e.Op)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
