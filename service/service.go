// Package service provides the generic base service for persistent entities.
//
// BaseService mirrors the repository surface and adds the collaboration
// contract between services: cache-first reads, cache invalidation on every
// write, and an observer mechanism through which services watching a peer
// entity drop caches derived from it.
package service

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/datakit-io/datakit/cache"
	"github.com/datakit-io/datakit/logger"
	"github.com/datakit-io/datakit/pagination"
	"github.com/datakit-io/datakit/query"
	"github.com/datakit-io/datakit/repo"
)

// BaseService is the contract application services embed. It exposes the
// full repository surface plus the observer registration and notification
// operations used for cross-service cache invalidation.
type BaseService[E any, ID any] interface {
	repo.BaseRepository[E, ID]

	// RegisterObservers adds components that must be notified whenever this
	// service's entity changes.
	RegisterObservers(observers ...Observer)
	// Notify announces a committed write to all registered observers.
	// Write operations call it automatically; expose it for manual use after
	// out-of-band changes (bulk imports, raw SQL migrations).
	Notify(ctx context.Context, event ChangeEvent)
	// OnEntityChanged makes the service an Observer of peer entities: the
	// default reaction drops this service's own cache region, since derived
	// or joined data may be stale.
	OnEntityChanged(ctx context.Context, event ChangeEvent) error
}

// Verify that Service implements BaseService at compile time.
var _ BaseService[struct{}, int64] = (*Service[struct{}, int64])(nil)

// Service is the default BaseService implementation wrapping a repository,
// an optional entity cache, and a change notifier.
type Service[E any, ID any] struct {
	repo       repo.BaseRepository[E, ID]
	cache      *cache.Cache
	notifier   *Notifier
	entityName string
	instanceID string
	log        logger.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	cache          *cache.Cache
	entityName     string
	notifyAttempts int
}

// WithCache enables cache-first reads and write-through invalidation using
// the given cache. Without it the service is a plain repository facade.
func WithCache(c *cache.Cache) ServiceOption {
	return func(o *serviceOptions) { o.cache = c }
}

// WithEntityName overrides the entity (cache region) name.
// Defaults to the Go type name of E.
func WithEntityName(name string) ServiceOption {
	return func(o *serviceOptions) { o.entityName = name }
}

// WithNotifyAttempts sets the delivery attempts per observer notification.
func WithNotifyAttempts(attempts int) ServiceOption {
	return func(o *serviceOptions) { o.notifyAttempts = attempts }
}

// NewService creates a base service over the given repository.
func NewService[E any, ID any](r repo.BaseRepository[E, ID], opts ...ServiceOption) *Service[E, ID] {
	o := serviceOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.entityName == "" {
		o.entityName = nameOf(new(E))
	}

	return &Service[E, ID]{
		repo:       r,
		cache:      o.cache,
		notifier:   NewNotifier(o.notifyAttempts),
		entityName: o.entityName,
		instanceID: uuid.NewString(),
		log:        logger.Named("service." + o.entityName),
	}
}

// EntityName returns the entity (cache region) name of the service.
func (s *Service[E, ID]) EntityName() string { return s.entityName }

// --- reads -----------------------------------------------------------------

func (s *Service[E, ID]) FindByID(ctx context.Context, id ID) (*E, error) {
	key := "id:" + fmt.Sprint(id)

	if s.cache != nil {
		var cached E
		err := s.cache.Get(ctx, s.entityName, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !cache.IsMiss(err) {
			// Best-effort cache: fall through to the database.
			s.log.WithContext(ctx).With("error", err).Warn("cache read failed")
		}
	}

	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, s.entityName, key, entity); cacheErr != nil {
			s.log.WithContext(ctx).With("error", cacheErr).Warn("cache write failed")
		}
	}

	return entity, nil
}

func (s *Service[E, ID]) FindAllByIDs(ctx context.Context, ids []ID) ([]E, error) {
	return s.repo.FindAllByIDs(ctx, ids)
}

func (s *Service[E, ID]) FindAll(ctx context.Context, specs ...query.Spec) ([]E, error) {
	return s.repo.FindAll(ctx, specs...)
}

func (s *Service[E, ID]) FindOne(ctx context.Context, specs ...query.Spec) (*E, error) {
	return s.repo.FindOne(ctx, specs...)
}

func (s *Service[E, ID]) FirstOrNil(ctx context.Context, specs ...query.Spec) (*E, error) {
	return s.repo.FirstOrNil(ctx, specs...)
}

func (s *Service[E, ID]) FindLatest(ctx context.Context, limit int) ([]E, error) {
	if limit <= 0 {
		limit = repo.DefaultLatestLimit
	}
	key := fmt.Sprintf("latest:%d", limit)

	if s.cache != nil {
		var cached []E
		if err := s.cache.Get(ctx, s.entityName, key, &cached); err == nil {
			return cached, nil
		}
	}

	entities, err := s.repo.FindLatest(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, s.entityName, key, entities); cacheErr != nil {
			s.log.WithContext(ctx).With("error", cacheErr).Warn("cache write failed")
		}
	}

	return entities, nil
}

func (s *Service[E, ID]) FindPage(
	ctx context.Context,
	req pagination.Request,
	specs ...query.Spec,
) (pagination.Page[E], error) {
	return s.repo.FindPage(ctx, req, specs...)
}

func (s *Service[E, ID]) Count(ctx context.Context, specs ...query.Spec) (int64, error) {
	return s.repo.Count(ctx, specs...)
}

func (s *Service[E, ID]) Exists(ctx context.Context, specs ...query.Spec) (bool, error) {
	return s.repo.Exists(ctx, specs...)
}

func (s *Service[E, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	return s.repo.ExistsByID(ctx, id)
}

func (s *Service[E, ID]) ExistsByProperty(ctx context.Context, property, value string) (bool, error) {
	return s.repo.ExistsByProperty(ctx, property, value)
}

func (s *Service[E, ID]) SearchProperty(ctx context.Context, property, pattern string) ([]string, error) {
	return s.repo.SearchProperty(ctx, property, pattern)
}

// --- writes ----------------------------------------------------------------

func (s *Service[E, ID]) Save(ctx context.Context, entity *E) (*E, error) {
	saved, err := s.repo.Save(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, OpCreate)
	return saved, nil
}

func (s *Service[E, ID]) SaveAll(ctx context.Context, entities []E) error {
	if err := s.repo.SaveAll(ctx, entities); err != nil {
		return err
	}

	s.afterWrite(ctx, OpCreate)
	return nil
}

func (s *Service[E, ID]) Update(ctx context.Context, entity *E) (*E, error) {
	updated, err := s.repo.Update(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, OpUpdate)
	return updated, nil
}

func (s *Service[E, ID]) Delete(ctx context.Context, entity *E) error {
	if err := s.repo.Delete(ctx, entity); err != nil {
		return err
	}

	s.afterWrite(ctx, OpDelete)
	return nil
}

func (s *Service[E, ID]) DeleteByID(ctx context.Context, id ID) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.afterWrite(ctx, OpDelete, fmt.Sprint(id))
	return nil
}

func (s *Service[E, ID]) DeleteAllByIDs(ctx context.Context, ids []ID) (int64, error) {
	deleted, err := s.repo.DeleteAllByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	keys := lo.Map(ids, func(id ID, _ int) string { return fmt.Sprint(id) })
	s.afterWrite(ctx, OpDelete, keys...)
	return deleted, nil
}

func (s *Service[E, ID]) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	s.afterWrite(ctx, OpDelete)
	return deleted, nil
}

// --- observer contract -------------------------------------------------------

// RegisterObservers adds components notified on every write to this entity.
func (s *Service[E, ID]) RegisterObservers(observers ...Observer) {
	s.notifier.Register(observers...)
}

// Notify fans the event out to local observers and broadcasts the region
// drop to other instances through the cache's pub/sub channel.
func (s *Service[E, ID]) Notify(ctx context.Context, event ChangeEvent) {
	s.notifier.Notify(ctx, event)

	if s.cache != nil {
		inv := cache.Invalidation{
			Region: event.Entity,
			Op:     string(event.Op),
			Origin: s.instanceID,
		}
		if err := s.cache.PublishInvalidation(ctx, inv); err != nil {
			s.log.WithContext(ctx).With("error", err).Warn("invalidation broadcast failed")
		}
	}
}

// OnEntityChanged implements Observer: a watched peer entity changed, so any
// cached data derived from it is stale. Drops this service's cache region.
func (s *Service[E, ID]) OnEntityChanged(ctx context.Context, event ChangeEvent) error {
	s.log.WithContext(ctx).
		With("peer", event.Entity).
		With("op", string(event.Op)).
		Debug("peer entity changed, dropping cache region")

	return s.dropRegion(ctx)
}

// ListenRemoteInvalidations re-dispatches region drops published by other
// instances to this service's local observers. It blocks until the context
// is canceled; run it in its own goroutine.
func (s *Service[E, ID]) ListenRemoteInvalidations(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	return s.cache.SubscribeInvalidations(ctx, func(inv cache.Invalidation) {
		if inv.Origin == s.instanceID || inv.Region != s.entityName {
			return
		}
		s.notifier.Notify(ctx, ChangeEvent{Entity: inv.Region, Op: ChangeOp(inv.Op)})
	})
}

// WaitNotifications blocks until in-flight observer deliveries finish.
func (s *Service[E, ID]) WaitNotifications() {
	s.notifier.Wait()
}

// afterWrite performs the post-write bookkeeping shared by all mutations:
// drop the entity's cache region, then notify observers.
func (s *Service[E, ID]) afterWrite(ctx context.Context, op ChangeOp, keys ...string) {
	if err := s.dropRegion(ctx); err != nil {
		s.log.WithContext(ctx).With("error", err).Warn("cache invalidation failed")
	}

	s.Notify(ctx, ChangeEvent{Entity: s.entityName, Op: op, Keys: keys})
}

func (s *Service[E, ID]) dropRegion(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DropRegion(ctx, s.entityName)
}

// nameOf returns the name of the type of the given value.
// If the value is a pointer, it returns the name of the pointed-to type.
func nameOf(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		return t.Elem().Name()
	}
	return t.Name()
}
