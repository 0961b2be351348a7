package ordercond

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradeassist/pkg/config"
	"github.com/wonny/tradeassist/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "console"})
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	file := filepath.Join(t.TempDir(), "stock_orders.json")
	m := NewManager(file, testLogger())
	require.NoError(t, m.Load())
	return m
}

func TestManager_LoadCreatesFile(t *testing.T) {
	m := newTestManager(t)

	_, err := os.Stat(m.File())
	assert.NoError(t, err)
	assert.Empty(t, m.All())
}

func TestManager_LoadExistingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stock_orders.json")
	seed := `{"005930": {"up": [{"up1": 75000, "timestamp": "2025-06-21T10:00:00"}], "down": []}}`
	require.NoError(t, os.WriteFile(file, []byte(seed), 0o644))

	m := NewManager(file, testLogger())
	require.NoError(t, m.Load())

	set, err := m.StockConditions("005930")
	require.NoError(t, err)
	require.Len(t, set.Up, 1)
	price, ok := set.Up[0].Price("up1")
	require.True(t, ok)
	assert.Equal(t, int64(75000), price)
	assert.Empty(t, set.Down)
}

func TestManager_AddStock(t *testing.T) {
	m := newTestManager(t)

	added, err := m.AddStock("005930")
	require.NoError(t, err)
	assert.True(t, added)

	// already registered
	added, err = m.AddStock("005930")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestManager_AddCondition(t *testing.T) {
	m := newTestManager(t)

	cond, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)
	price, ok := cond.Price("up1")
	require.True(t, ok)
	assert.Equal(t, int64(75000), price)
	assert.Contains(t, cond, "timestamp")

	// extra fields are kept
	cond, err = m.AddCondition("005930", "down", 3, 70000, map[string]interface{}{"volume": 100000})
	require.NoError(t, err)
	assert.Equal(t, 100000, cond["volume"])

	// same key replaces instead of appending
	_, err = m.AddCondition("005930", "up", 1, 76000, nil)
	require.NoError(t, err)
	set, err := m.StockConditions("005930")
	require.NoError(t, err)
	require.Len(t, set.Up, 1)
	price, _ = set.Up[0].Price("up1")
	assert.Equal(t, int64(76000), price)
}

func TestManager_AddCondition_Validation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.AddCondition("005930", "sideways", 1, 75000, nil)
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = m.AddCondition("005930", "up", 0, 75000, nil)
	assert.ErrorIs(t, err, ErrInvalidNum)

	_, err = m.AddCondition("005930", "up", 8, 75000, nil)
	assert.ErrorIs(t, err, ErrInvalidNum)

	_, err = m.AddCondition("005930", "up", 1, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestManager_GetCondition(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)

	cond, err := m.GetCondition("005930", "up", 1)
	require.NoError(t, err)
	price, _ := cond.Price("up1")
	assert.Equal(t, int64(75000), price)

	_, err = m.GetCondition("005930", "up", 2)
	assert.ErrorIs(t, err, ErrCondNotFound)

	_, err = m.GetCondition("000660", "up", 1)
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestManager_UpdateCondition(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateCondition("005930", "up", "up1", 78000))

	cond, err := m.GetCondition("005930", "up", 1)
	require.NoError(t, err)
	assert.Equal(t, 78000, cond["up1"])
	assert.Contains(t, cond, "updated")

	err = m.UpdateCondition("005930", "up", "up5", 78000)
	assert.ErrorIs(t, err, ErrCondNotFound)
}

func TestManager_DeleteConditionByNum(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddCondition("005930", "down", 3, 70000, nil)
	require.NoError(t, err)

	require.NoError(t, m.DeleteConditionByNum("005930", "down", 3))

	set, err := m.StockConditions("005930")
	require.NoError(t, err)
	assert.Empty(t, set.Down)

	err = m.DeleteConditionByNum("005930", "down", 3)
	assert.ErrorIs(t, err, ErrCondNotFound)
}

func TestManager_DeleteStock(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)

	require.NoError(t, m.DeleteStock("005930"))
	_, err = m.StockConditions("005930")
	assert.ErrorIs(t, err, ErrStockNotFound)

	assert.ErrorIs(t, m.DeleteStock("005930"), ErrStockNotFound)
}

func TestManager_AvailableNums(t *testing.T) {
	m := newTestManager(t)

	// unregistered stock: every slot is free
	nums, err := m.AvailableNums("005930", "up")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, nums)

	_, err = m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)
	_, err = m.AddCondition("005930", "up", 4, 77000, nil)
	require.NoError(t, err)

	nums, err = m.AvailableNums("005930", "up")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5, 6, 7}, nums)

	// the down side is independent
	nums, err = m.AvailableNums("005930", "down")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, nums)
}

func TestManager_SaveKeepsBackup(t *testing.T) {
	m := newTestManager(t)

	_, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)
	_, err = m.AddCondition("005930", "up", 2, 76000, nil)
	require.NoError(t, err)

	backup, err := os.ReadFile(m.File() + ".backup")
	require.NoError(t, err)

	// backup holds the state before the last write
	var snapshot map[string]*DirectionSet
	require.NoError(t, json.Unmarshal(backup, &snapshot))
	require.Contains(t, snapshot, "005930")
	assert.Len(t, snapshot["005930"].Up, 1)
}

func TestManager_Summary(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddCondition("005930", "up", 1, 75000, nil)
	require.NoError(t, err)
	_, err = m.AddCondition("005930", "down", 1, 70000, nil)
	require.NoError(t, err)
	_, err = m.AddCondition("000660", "up", 2, 120000, nil)
	require.NoError(t, err)

	summary := m.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, "000660", summary[0].StockCode)
	assert.Equal(t, 1, summary[0].UpCount)
	assert.Equal(t, "005930", summary[1].StockCode)
	assert.Equal(t, 1, summary[1].UpCount)
	assert.Equal(t, 1, summary[1].DownCount)
}

func TestManager_PersistsAcrossReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "orders", "stock_orders.json")
	log := testLogger()

	m := NewManager(file, log)
	require.NoError(t, m.Load())
	_, err := m.AddCondition("005930", "up", 1, 75000, map[string]interface{}{"volume": 100000})
	require.NoError(t, err)
	require.NoError(t, m.Shutdown())

	reloaded := NewManager(file, log)
	require.NoError(t, reloaded.Load())

	cond, err := reloaded.GetCondition("005930", "up", 1)
	require.NoError(t, err)
	price, ok := cond.Price("up1")
	require.True(t, ok)
	assert.Equal(t, int64(75000), price)
	assert.EqualValues(t, 100000, cond["volume"])
}
