package ordercond

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/tradeassist/pkg/logger"
)

// Direction of an order condition
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Condition numbers run 1..7 per direction
const (
	MinConditionNum = 1
	MaxConditionNum = 7
)

var (
	ErrInvalidDirection = errors.New("direction must be 'up' or 'down'")
	ErrInvalidNum       = errors.New("condition number must be between 1 and 7")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrStockNotFound    = errors.New("stock not registered")
	ErrCondNotFound     = errors.New("condition not found")
)

// Condition is one threshold entry. Besides the "{direction}{num}": price
// pair it may carry extra fields such as volume, plus timestamp/updated.
type Condition map[string]interface{}

// Price returns the target price stored under the condition's key
func (c Condition) Price(key string) (int64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// DirectionSet holds a stock's up and down condition lists
type DirectionSet struct {
	Up   []Condition `json:"up"`
	Down []Condition `json:"down"`
}

func (d *DirectionSet) list(direction string) []Condition {
	if direction == DirectionUp {
		return d.Up
	}
	return d.Down
}

func (d *DirectionSet) setList(direction string, conditions []Condition) {
	if direction == DirectionUp {
		d.Up = conditions
	} else {
		d.Down = conditions
	}
}

// Manager owns the order-condition file. All mutations rewrite the file with
// a .backup of the previous contents.
// ⭐ SSOT: 주문 조건 파일은 이 매니저를 통해서만
type Manager struct {
	mu     sync.RWMutex
	file   string
	orders map[string]*DirectionSet
	logger *logger.Logger
}

// NewManager creates a manager for the given JSON file. Call Load before use.
func NewManager(file string, log *logger.Logger) *Manager {
	return &Manager{
		file:   file,
		orders: make(map[string]*DirectionSet),
		logger: log,
	}
}

// Load reads the condition file, creating an empty one when missing
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.file)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read order file %s: %w", m.file, err)
		}
		m.logger.WithField("file", m.file).Info("주문 조건 파일이 없어 새로 생성합니다")
		m.orders = make(map[string]*DirectionSet)
		return m.save()
	}

	orders := make(map[string]*DirectionSet)
	if err := json.Unmarshal(data, &orders); err != nil {
		return fmt.Errorf("parse order file %s: %w", m.file, err)
	}
	for _, set := range orders {
		if set.Up == nil {
			set.Up = []Condition{}
		}
		if set.Down == nil {
			set.Down = []Condition{}
		}
	}
	m.orders = orders

	m.logger.WithFields(map[string]interface{}{
		"file":   m.file,
		"stocks": len(orders),
	}).Info("주문 조건 파일 로드 완료")
	return nil
}

// save writes the current state, keeping the previous file as .backup.
// Caller must hold the lock.
func (m *Manager) save() error {
	if _, err := os.Stat(m.file); err == nil {
		if err := os.Rename(m.file, m.file+".backup"); err != nil {
			return fmt.Errorf("backup order file: %w", err)
		}
	}

	if dir := filepath.Dir(m.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create order file dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(m.orders, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal order conditions: %w", err)
	}
	if err := os.WriteFile(m.file, data, 0o644); err != nil {
		return fmt.Errorf("write order file %s: %w", m.file, err)
	}
	return nil
}

// Backup rewrites the file, rolling the current contents into .backup
func (m *Manager) Backup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save()
}

// File returns the path of the backing file
func (m *Manager) File() string {
	return m.file
}

// AddStock registers a stock with empty condition lists. Returns false when
// it already exists.
func (m *Manager) AddStock(stockCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[stockCode]; ok {
		return false, nil
	}
	m.orders[stockCode] = &DirectionSet{Up: []Condition{}, Down: []Condition{}}
	if err := m.save(); err != nil {
		return false, err
	}
	m.logger.WithField("stock_code", stockCode).Info("주문 조건 종목 추가")
	return true, nil
}

func validate(direction string, num int, price int64) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}
	if num < MinConditionNum || num > MaxConditionNum {
		return fmt.Errorf("%w: %d", ErrInvalidNum, num)
	}
	if price <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}
	return nil
}

// AddCondition sets the price for condition {direction}{num} of a stock.
// An existing condition with the same key is replaced; the stock is
// registered on first use. extra fields (volume 등) are stored alongside.
func (m *Manager) AddCondition(stockCode, direction string, num int, price int64, extra map[string]interface{}) (Condition, error) {
	if err := validate(direction, num, price); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.orders[stockCode]
	if !ok {
		set = &DirectionSet{Up: []Condition{}, Down: []Condition{}}
		m.orders[stockCode] = set
	}

	key := direction + strconv.Itoa(num)
	condition := Condition{
		key:         price,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range extra {
		condition[k] = v
	}

	conditions := set.list(direction)
	replaced := false
	for i, cond := range conditions {
		if _, ok := cond[key]; ok {
			conditions[i] = condition
			replaced = true
			break
		}
	}
	if !replaced {
		conditions = append(conditions, condition)
	}
	set.setList(direction, conditions)

	if err := m.save(); err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"condition":  key,
		"price":      price,
		"replaced":   replaced,
	}).Info("주문 조건 설정 완료")
	return condition, nil
}

// UpdateCondition rewrites the value stored under key in the first matching
// condition and stamps it as updated.
func (m *Manager) UpdateCondition(stockCode, direction, key string, newValue interface{}) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.orders[stockCode]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStockNotFound, stockCode)
	}

	for _, cond := range set.list(direction) {
		if _, ok := cond[key]; ok {
			cond[key] = newValue
			cond["updated"] = time.Now().Format(time.RFC3339)
			return m.save()
		}
	}
	return fmt.Errorf("%w: %s/%s %s", ErrCondNotFound, stockCode, direction, key)
}

// GetCondition returns condition {direction}{num} of a stock
func (m *Manager) GetCondition(stockCode, direction string, num int) (Condition, error) {
	if err := validate(direction, num, 1); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.orders[stockCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, stockCode)
	}

	key := direction + strconv.Itoa(num)
	for _, cond := range set.list(direction) {
		if _, ok := cond[key]; ok {
			return cond, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrCondNotFound, stockCode, key)
}

// DeleteCondition removes the first condition carrying key
func (m *Manager) DeleteCondition(stockCode, direction, key string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.orders[stockCode]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStockNotFound, stockCode)
	}

	conditions := set.list(direction)
	for i, cond := range conditions {
		if _, ok := cond[key]; ok {
			set.setList(direction, append(conditions[:i], conditions[i+1:]...))
			if err := m.save(); err != nil {
				return err
			}
			m.logger.WithFields(map[string]interface{}{
				"stock_code": stockCode,
				"condition":  key,
			}).Info("주문 조건 삭제 완료")
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s %s", ErrCondNotFound, stockCode, direction, key)
}

// DeleteConditionByNum removes condition {direction}{num}
func (m *Manager) DeleteConditionByNum(stockCode, direction string, num int) error {
	if err := validate(direction, num, 1); err != nil {
		return err
	}
	return m.DeleteCondition(stockCode, direction, direction+strconv.Itoa(num))
}

// DeleteStock removes a stock and all its conditions
func (m *Manager) DeleteStock(stockCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[stockCode]; !ok {
		return fmt.Errorf("%w: %s", ErrStockNotFound, stockCode)
	}
	delete(m.orders, stockCode)
	return m.save()
}

// StockConditions returns a copy of one stock's condition lists
func (m *Manager) StockConditions(stockCode string) (*DirectionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.orders[stockCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, stockCode)
	}
	return copySet(set), nil
}

// All returns a copy of every stock's conditions
func (m *Manager) All() map[string]*DirectionSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make(map[string]*DirectionSet, len(m.orders))
	for code, set := range m.orders {
		all[code] = copySet(set)
	}
	return all
}

// AvailableNums lists the unused condition numbers for a stock's direction
func (m *Manager) AvailableNums(stockCode, direction string) ([]int, error) {
	if direction != DirectionUp && direction != DirectionDown {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	used := make(map[int]bool)
	if set, ok := m.orders[stockCode]; ok {
		for _, cond := range set.list(direction) {
			for key := range cond {
				if !strings.HasPrefix(key, direction) {
					continue
				}
				if num, err := strconv.Atoi(key[len(direction):]); err == nil &&
					num >= MinConditionNum && num <= MaxConditionNum {
					used[num] = true
				}
			}
		}
	}

	var available []int
	for num := MinConditionNum; num <= MaxConditionNum; num++ {
		if !used[num] {
			available = append(available, num)
		}
	}
	return available, nil
}

// StockSummary is one row of the conditions overview
type StockSummary struct {
	StockCode string `json:"stock_code"`
	UpCount   int    `json:"up_count"`
	DownCount int    `json:"down_count"`
}

// Summary lists each registered stock with its condition counts
func (m *Manager) Summary() []StockSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]StockSummary, 0, len(m.orders))
	for code, set := range m.orders {
		summaries = append(summaries, StockSummary{
			StockCode: code,
			UpCount:   len(set.Up),
			DownCount: len(set.Down),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StockCode < summaries[j].StockCode
	})
	return summaries
}

// Shutdown flushes the current state to disk
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.save(); err != nil {
		return err
	}
	m.logger.Info("주문 조건 매니저 종료 완료")
	return nil
}

func copySet(set *DirectionSet) *DirectionSet {
	out := &DirectionSet{
		Up:   make([]Condition, len(set.Up)),
		Down: make([]Condition, len(set.Down)),
	}
	for i, cond := range set.Up {
		out.Up[i] = copyCondition(cond)
	}
	for i, cond := range set.Down {
		out.Down[i] = copyCondition(cond)
	}
	return out
}

func copyCondition(cond Condition) Condition {
	out := make(Condition, len(cond))
	for k, v := range cond {
		out[k] = v
	}
	return out
}
