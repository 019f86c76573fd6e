/*
Package redisstore implements ledger.Store on Redis.

KEYS (prefix defaults to "meal"):
  {p}:issuance:{day}:{employee}  JSON record, written once with SET NX
  {p}:day:{day}                  ZSET member=employee score=served_at_ms
  {p}:employee:{employee}        ZSET member=day      score=served_at_ms

UNIQUENESS:
  One Lua script performs SET NX on the issuance key and, only when it
  succeeds, adds both index entries. Redis runs scripts atomically, so a
  concurrent caller either wins the SET or reads back the winner's payload.

  On Redis Cluster all keys of one script must share a slot: use a hash-tag
  prefix such as "{meal}".
*/
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

const DefaultPrefix = "meal"

const insertIfAbsentScript = `
local created = redis.call("SET", KEYS[1], ARGV[1], "NX")
if created then
  redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
  redis.call("ZADD", KEYS[3], ARGV[2], ARGV[4])
  return {1, ARGV[1]}
end
return {0, redis.call("GET", KEYS[1])}
`

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	log    *zap.Logger
	owned  bool
}

// New uses an existing client. Close leaves the client open.
func New(client redis.UniversalClient, prefix string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		script: redis.NewScript(insertIfAbsentScript),
		prefix: prefix,
		log:    log.Named("redisstore"),
	}
}

// Open dials Redis and checks the connection.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(opts.Password),
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	s := New(client, opts.Prefix, log)
	s.owned = true
	s.log.Info("redis store ready", zap.String("addr", addr), zap.String("prefix", s.prefix))
	return s, nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// =============================================================================
// KEYS AND PAYLOAD
// =============================================================================

func (s *Store) issuanceKey(day ledger.ServiceDay, employeeID ledger.EmployeeID) string {
	return fmt.Sprintf("%s:issuance:%s:%s", s.prefix, day, employeeID)
}

func (s *Store) dayKey(day ledger.ServiceDay) string {
	return fmt.Sprintf("%s:day:%s", s.prefix, day)
}

func (s *Store) employeeKey(employeeID ledger.EmployeeID) string {
	return fmt.Sprintf("%s:employee:%s", s.prefix, employeeID)
}

type payload struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	MealWindow string `json:"mealWindow"`
	CounterID  int    `json:"counterId"`
	ServedAtMs int64  `json:"servedAtEpochMillis"`
	ServiceDay string `json:"serviceDay"`
}

func encode(rec ledger.IssuanceRecord) (string, error) {
	b, err := json.Marshal(payload{
		ID:         rec.ID,
		EmployeeID: string(rec.EmployeeID),
		MealWindow: string(rec.MealWindow),
		CounterID:  int(rec.CounterID),
		ServedAtMs: rec.ServedAtMillis,
		ServiceDay: string(rec.ServiceDay),
	})
	return string(b), err
}

func decode(raw string) (ledger.IssuanceRecord, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ledger.IssuanceRecord{}, fmt.Errorf("decode issuance: %w", err)
	}
	return ledger.IssuanceRecord{
		ID:             p.ID,
		EmployeeID:     ledger.EmployeeID(p.EmployeeID),
		MealWindow:     ledger.MealWindow(p.MealWindow),
		CounterID:      ledger.CounterID(p.CounterID),
		ServedAtMillis: p.ServedAtMs,
		ServiceDay:     ledger.ServiceDay(p.ServiceDay),
	}, nil
}

// =============================================================================
// ledger.Store
// =============================================================================

func (s *Store) FindByEmployeeAndDay(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (*ledger.IssuanceRecord, error) {
	raw, err := s.client.Get(ctx, s.issuanceKey(day, employeeID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ledger.OpFindByEmployeeAndDay, err)
	}
	rec, err := decode(raw)
	if err != nil {
		return nil, s.fail(ledger.OpFindByEmployeeAndDay, err)
	}
	return &rec, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, rec ledger.IssuanceRecord) (ledger.InsertResult, error) {
	body, err := encode(rec)
	if err != nil {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, err)
	}

	res, err := s.script.Run(ctx, s.client,
		[]string{
			s.issuanceKey(rec.ServiceDay, rec.EmployeeID),
			s.dayKey(rec.ServiceDay),
			s.employeeKey(rec.EmployeeID),
		},
		body,
		rec.ServedAtMillis,
		string(rec.EmployeeID),
		string(rec.ServiceDay),
	).Slice()
	if err != nil {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, err)
	}
	if len(res) < 2 {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, errors.New("invalid insert script response"))
	}

	created, _ := res[0].(int64)
	if created == 1 {
		return ledger.Inserted(), nil
	}
	raw, ok := res[1].(string)
	if !ok {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, errors.New("conflicting issuance payload missing"))
	}
	existing, err := decode(raw)
	if err != nil {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, err)
	}
	return ledger.AlreadyExists(existing), nil
}

// ListByDay reads the day index newest first, then the records in one MGET.
func (s *Store) ListByDay(ctx context.Context, day ledger.ServiceDay) ([]ledger.IssuanceRecord, error) {
	members, err := s.client.ZRevRange(ctx, s.dayKey(day), 0, -1).Result()
	if err != nil {
		return nil, s.fail(ledger.OpListByDay, err)
	}
	keys := make([]string, 0, len(members))
	for _, emp := range members {
		keys = append(keys, s.issuanceKey(day, ledger.EmployeeID(emp)))
	}
	recs, err := s.load(ctx, keys)
	if err != nil {
		return nil, s.fail(ledger.OpListByDay, err)
	}
	ledger.SortRoster(recs)
	return recs, nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID ledger.EmployeeID) ([]ledger.IssuanceRecord, error) {
	members, err := s.client.ZRevRange(ctx, s.employeeKey(employeeID), 0, -1).Result()
	if err != nil {
		return nil, s.fail(ledger.OpListByEmployee, err)
	}
	keys := make([]string, 0, len(members))
	for _, day := range members {
		keys = append(keys, s.issuanceKey(ledger.ServiceDay(day), employeeID))
	}
	recs, err := s.load(ctx, keys)
	if err != nil {
		return nil, s.fail(ledger.OpListByEmployee, err)
	}
	ledger.SortHistory(recs)
	return recs, nil
}

func (s *Store) load(ctx context.Context, keys []string) ([]ledger.IssuanceRecord, error) {
	recs := make([]ledger.IssuanceRecord, 0, len(keys))
	if len(keys) == 0 {
		return recs, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record cannot happen through the script.
			s.log.Warn("dangling index entry", zap.String("key", keys[i]))
			continue
		}
		rec, err := decode(raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) fail(op string, err error) error {
	s.log.Warn("redis store call failed", zap.String("op", op), zap.Error(err))
	return ledger.Unavailable(op, err)
}

var _ ledger.Store = (*Store)(nil)
