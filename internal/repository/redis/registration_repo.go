package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"eventregistration/internal/domain"
)

// DefaultKeyPrefix namespaces every key the repository writes.
const DefaultKeyPrefix = "registrations"

// insertScript claims the ticket token and writes the record and its indexes in one step.
// KEYS: token, record, user index, event index, status index. ARGV: id, event, user, date, status, token.
var insertScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2], 'id', ARGV[1], 'event_id', ARGV[2], 'user_id', ARGV[3],
	'registration_date', ARGV[4], 'status', ARGV[5], 'ticket_token', ARGV[6])
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('SADD', KEYS[4], ARGV[1])
redis.call('SADD', KEYS[5], ARGV[1])
return 1
`)

// transitionScript moves status from ARGV[1] to ARGV[2] only if the current status is ARGV[1].
// KEYS: record, from-status index, to-status index. ARGV: from, to, id.
// Returns -1 when the record is missing, 0 on status mismatch, 1 when applied.
var transitionScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
	return -1
end
if cur ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
redis.call('SMOVE', KEYS[2], KEYS[3], ARGV[3])
return 1
`)

// setStatusScript overwrites status when the current status is one of the allowed ones
// and keeps the status indexes in step.
// KEYS: record, REGISTERED index, CANCELLED index. ARGV: status, id, allowed current statuses...
// Returns -1 when the record is missing, 0 when the current status is not allowed, 1 when applied.
var setStatusScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
	return -1
end
local allowed = false
for i = 3, #ARGV do
	if ARGV[i] == cur then
		allowed = true
	end
end
if not allowed then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
redis.call('SREM', KEYS[2], ARGV[2])
redis.call('SREM', KEYS[3], ARGV[2])
if ARGV[1] == 'REGISTERED' then
	redis.call('SADD', KEYS[2], ARGV[2])
else
	redis.call('SADD', KEYS[3], ARGV[2])
end
return 1
`)

type registrationRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewRegistrationRepository returns a Redis-backed domain.RegistrationRepository.
// An empty prefix uses DefaultKeyPrefix.
func NewRegistrationRepository(rdb *redis.Client, prefix string) domain.RegistrationRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &registrationRepository{rdb: rdb, prefix: prefix}
}

func (r *registrationRepository) seqKey() string { return r.prefix + ":seq" }

func (r *registrationRepository) recordKey(id int64) string {
	return r.prefix + ":id:" + strconv.FormatInt(id, 10)
}

func (r *registrationRepository) tokenKey(token string) string { return r.prefix + ":token:" + token }

func (r *registrationRepository) userKey(userID int64) string {
	return r.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

func (r *registrationRepository) eventKey(eventID int64) string {
	return r.prefix + ":event:" + strconv.FormatInt(eventID, 10)
}

func (r *registrationRepository) statusKey(status domain.RegistrationStatus) string {
	return r.prefix + ":status:" + string(status)
}

func (r *registrationRepository) Save(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	if reg.ID == 0 {
		return r.insert(ctx, reg)
	}
	args := []any{string(reg.Status), reg.ID}
	for _, st := range domain.StatusesThatCanBecome(reg.Status) {
		args = append(args, string(st))
	}
	res, err := setStatusScript.Run(ctx, r.rdb,
		[]string{r.recordKey(reg.ID), r.statusKey(domain.StatusRegistered), r.statusKey(domain.StatusCancelled)},
		args...,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	switch res {
	case -1:
		return nil, domain.ErrNotFound
	case 0:
		return nil, domain.ErrStatusConflict
	}
	return r.FindByID(ctx, reg.ID)
}

func (r *registrationRepository) insert(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	id, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate registration id: %w", err)
	}
	res, err := insertScript.Run(ctx, r.rdb,
		[]string{
			r.tokenKey(reg.TicketToken),
			r.recordKey(id),
			r.userKey(reg.UserID),
			r.eventKey(reg.EventID),
			r.statusKey(reg.Status),
		},
		id, reg.EventID, reg.UserID, reg.RegistrationDate.UTC().Format(time.RFC3339Nano), string(reg.Status), reg.TicketToken,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	if res == 0 {
		return nil, domain.ErrDuplicateTicketToken
	}
	saved := *reg
	saved.ID = id
	return &saved, nil
}

func (r *registrationRepository) FindByID(ctx context.Context, id int64) (*domain.Registration, error) {
	fields, err := r.rdb.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return decodeRegistration(fields)
}

func (r *registrationRepository) FindByUserID(ctx context.Context, userID int64) ([]*domain.Registration, error) {
	return r.listIndex(ctx, r.userKey(userID), nil)
}

func (r *registrationRepository) FindByEventID(ctx context.Context, eventID int64) ([]*domain.Registration, error) {
	return r.listIndex(ctx, r.eventKey(eventID), nil)
}

// FindByStatus re-checks status after loading, since a record can move between
// status indexes while the list is being read.
func (r *registrationRepository) FindByStatus(ctx context.Context, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	return r.listIndex(ctx, r.statusKey(status), func(reg *domain.Registration) bool {
		return reg.Status == status
	})
}

func (r *registrationRepository) listIndex(ctx context.Context, indexKey string, keep func(*domain.Registration) bool) ([]*domain.Registration, error) {
	members, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", indexKey, err)
	}
	regs := []*domain.Registration{}
	if len(members) == 0 {
		return regs, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt index member %q: %w", m, err)
			}
			cmds = append(cmds, pipe.HGetAll(ctx, r.recordKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		reg, err := decodeRegistration(fields)
		if err != nil {
			return nil, err
		}
		if keep != nil && !keep(reg) {
			continue
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs, nil
}

func (r *registrationRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.RegistrationStatus) (*domain.Registration, error) {
	res, err := transitionScript.Run(ctx, r.rdb,
		[]string{r.recordKey(id), r.statusKey(from), r.statusKey(to)},
		string(from), string(to), id,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("transition registration status: %w", err)
	}
	switch res {
	case -1:
		return nil, domain.ErrNotFound
	case 0:
		return nil, domain.ErrStatusConflict
	}
	return r.FindByID(ctx, id)
}

func decodeRegistration(fields map[string]string) (*domain.Registration, error) {
	var errs []error
	parseInt := func(key string) int64 {
		v, err := strconv.ParseInt(fields[key], 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", key, err))
		}
		return v
	}
	reg := &domain.Registration{
		ID:          parseInt("id"),
		EventID:     parseInt("event_id"),
		UserID:      parseInt("user_id"),
		Status:      domain.RegistrationStatus(fields["status"]),
		TicketToken: fields["ticket_token"],
	}
	date, err := time.Parse(time.RFC3339Nano, fields["registration_date"])
	if err != nil {
		errs = append(errs, fmt.Errorf("field registration_date: %w", err))
	}
	reg.RegistrationDate = date
	if !reg.Status.Valid() {
		errs = append(errs, fmt.Errorf("field status: unknown value %q", fields["status"]))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return reg, nil
}
