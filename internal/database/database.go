package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/longhaiqwe/radioapp/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是统一的 SQLite 数据库连接。
// 识别点数和配置共享同一个数据库文件，便于事务和备份。
type DB struct {
	*sql.DB
	path string
}

// Open 打开或创建数据库。
// dbPath: 数据库文件路径，如果为空则使用默认路径 ~/.radioapp/radioapp.db
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			dbPath = filepath.Join(home, ".radioapp", "radioapp.db")
		} else {
			dbPath = "./radioapp.db"
		}
	}

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 设置 WAL 模式（更好的并发性能）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	// 启用外键约束
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("启用外键约束失败: %w", err)
	}

	logger.Infof("[database] 数据库已打开: %s", dbPath)

	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 运行数据库迁移。
func (db *DB) Migrate() error {
	migrations := []string{
		// 识别点数余额表（单行）
		`CREATE TABLE IF NOT EXISTS recognition_credits (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			balance INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// 点数流水表（发放/消耗审计）
		`CREATE TABLE IF NOT EXISTS credit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			delta INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// 系统配置表
		`CREATE TABLE IF NOT EXISTS system_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 余额行不存在时插入初始行
	if _, err := db.Exec(`INSERT OR IGNORE INTO recognition_credits (id, balance) VALUES (1, 0)`); err != nil {
		return fmt.Errorf("初始化点数余额失败: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_credit_events_created ON credit_events(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[database] 创建索引失败: %v", err)
		}
	}

	logger.Info("[database] 数据库迁移完成")
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
