// Package credits 付费识别点数账本。
// 每次调用付费的副识别引擎固定消耗 1 点，余额永不为负。
package credits

import (
	"errors"
	"fmt"
	"sync"

	"github.com/longhaiqwe/radioapp/internal/database"
	"github.com/longhaiqwe/radioapp/internal/logger"
)

// ErrInsufficient 余额不足，无法再发起付费识别。
var ErrInsufficient = errors.New("识别点数余额不足")

// Ledger 点数账本。
// 编排器只通过该接口读取和扣减，持久化由实现方负责。
type Ledger interface {
	// Balance 返回当前余额。
	Balance() (int, error)
	// ConsumeOne 原子扣减 1 点，余额为零时返回 ErrInsufficient。
	ConsumeOne() error
	// Grant 发放 n 点（n > 0）。
	Grant(n int) error
}

// SQLiteLedger 基于 SQLite 的账本实现，余额存放在单行表里。
type SQLiteLedger struct {
	mu sync.Mutex
	db *database.DB
}

// NewSQLiteLedger 创建账本。调用方需先完成 database.Migrate。
func NewSQLiteLedger(db *database.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// Balance 实现 Ledger 接口。
func (l *SQLiteLedger) Balance() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var balance int
	err := l.db.QueryRow(`SELECT balance FROM recognition_credits WHERE id = 1`).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("查询点数余额失败: %w", err)
	}
	return balance, nil
}

// ConsumeOne 实现 Ledger 接口。
// 扣减和流水写入放在同一个事务里，WHERE balance > 0 保证不会扣成负数。
func (l *SQLiteLedger) ConsumeOne() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE recognition_credits
		SET balance = balance - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1 AND balance > 0`)
	if err != nil {
		return fmt.Errorf("扣减点数失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("扣减点数失败: %w", err)
	}
	if affected == 0 {
		return ErrInsufficient
	}

	if _, err := tx.Exec(`INSERT INTO credit_events (delta, reason) VALUES (-1, 'secondary-recognition')`); err != nil {
		return fmt.Errorf("写入点数流水失败: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	logger.Debug("[credits] 已消耗 1 点识别点数")
	return nil
}

// Grant 实现 Ledger 接口。
func (l *SQLiteLedger) Grant(n int) error {
	if n <= 0 {
		return fmt.Errorf("发放点数必须为正数: %d", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE recognition_credits
		SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`, n); err != nil {
		return fmt.Errorf("发放点数失败: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO credit_events (delta, reason) VALUES (?, 'grant')`, n); err != nil {
		return fmt.Errorf("写入点数流水失败: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	logger.Infof("[credits] 已发放 %d 点识别点数", n)
	return nil
}
