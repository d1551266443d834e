package database

import (
	"database/sql"
	stdlog "log"

	"github.com/ikppramesh/everypaisa/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTransactionsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount TEXT NOT NULL,
		merchant_name TEXT NOT NULL,
		category TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		date_time TIMESTAMP NOT NULL,
		description TEXT,
		sms_body TEXT,
		sms_sender TEXT,
		sms_id INTEGER,
		bank_name TEXT,
		account_last4 TEXT,
		transaction_hash TEXT NOT NULL UNIQUE,
		currency TEXT NOT NULL DEFAULT 'INR',
		is_deleted BOOLEAN DEFAULT FALSE,
		is_atm_withdrawal BOOLEAN DEFAULT FALSE,
		is_inter_account_transfer BOOLEAN DEFAULT FALSE,
		from_account TEXT,
		to_account TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_sms_id ON transactions(sms_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_date_time ON transactions(date_time);

	CREATE TABLE IF NOT EXISTS merchant_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		merchant_name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionsTable adds columns introduced after the first release
// (exclusion flags and transfer endpoints) to existing databases.
func migrateTransactionsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'transactions' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'transactions' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'transactions' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'transactions' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'transactions'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'transactions': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'transactions'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'transactions': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'transactions'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'transactions': %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if _, ok := columnExists[name]; ok {
			return
		}
		_, err := DB.Exec("ALTER TABLE transactions ADD COLUMN " + name + " " + definition)
		if err != nil {
			logger.L.Error("Error adding column to 'transactions' table", "column", name, "error", err)
		} else {
			logger.L.Info("Added column to 'transactions' table", "column", name)
		}
	}

	addColumn("is_atm_withdrawal", "BOOLEAN DEFAULT FALSE")
	addColumn("is_inter_account_transfer", "BOOLEAN DEFAULT FALSE")
	addColumn("from_account", "TEXT")
	addColumn("to_account", "TEXT")
}
