package database

import (
	"database/sql"
	stdlog "log"
	"strings"

	"github.com/username/btmdesk/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens (or creates) the SQLite database and ensures the schema exists.
// Foreign keys are enabled per-connection via the DSN so manifest deletes
// cascade to their transactions.
func InitDB(databasePath string) {
	dsn := databasePath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		platform TEXT NOT NULL,
		record_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		txid TEXT NOT NULL UNIQUE,
		upload_id INTEGER,
		device_id TEXT,
		ticker TEXT,
		sale_amount REAL,
		fee_amount REAL,
		operator_fee REAL,
		sent_amount REAL,
		date TIMESTAMP NOT NULL,
		platform TEXT NOT NULL,
		FOREIGN KEY(upload_id) REFERENCES uploads(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS ticker_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_value TEXT NOT NULL UNIQUE,
		display_value TEXT,
		fee_percentage REAL NOT NULL DEFAULT 0.10
	);

	CREATE TABLE IF NOT EXISTS atm_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		location_name TEXT,
		platform TEXT,
		platform_switch_date TIMESTAMP,
		installed_date TIMESTAMP,
		removed_date TIMESTAMP,
		rent REAL NOT NULL DEFAULT 0,
		mgmt_genesis REAL NOT NULL DEFAULT 0,
		mgmt_bitaccess REAL NOT NULL DEFAULT 0,
		sales_rep_id INTEGER,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		FOREIGN KEY(sales_rep_id) REFERENCES sales_reps(id)
	);

	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS sales_reps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		commission_rate REAL NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS cash_pickups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		person_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		pickup_date TIMESTAMP NOT NULL,
		notes TEXT,
		FOREIGN KEY(person_id) REFERENCES people(id)
	);

	CREATE TABLE IF NOT EXISTS deposits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		deposit_no TEXT NOT NULL UNIQUE,
		amount REAL NOT NULL,
		deposit_date TIMESTAMP NOT NULL,
		bank TEXT,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS deposit_pickup_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		deposit_id INTEGER NOT NULL,
		pickup_id INTEGER NOT NULL,
		FOREIGN KEY(deposit_id) REFERENCES deposits(id) ON DELETE CASCADE,
		FOREIGN KEY(pickup_id) REFERENCES cash_pickups(id)
	);

	CREATE TABLE IF NOT EXISTS commissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sales_rep_id INTEGER NOT NULL,
		month TEXT NOT NULL,
		amount REAL NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sales_rep_id, month),
		FOREIGN KEY(sales_rep_id) REFERENCES sales_reps(id)
	);

	CREATE TABLE IF NOT EXISTS commission_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		commission_id INTEGER NOT NULL,
		device_id TEXT NOT NULL,
		month TEXT NOT NULL,
		amount REAL NOT NULL,
		FOREIGN KEY(commission_id) REFERENCES commissions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_device ON transactions(device_id);
	CREATE INDEX IF NOT EXISTS idx_commission_details_device_month ON commission_details(device_id, month);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateATMProfiles()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateATMProfiles adds columns introduced after the initial release to
// existing atm_profiles tables.
func migrateATMProfiles() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='atm_profiles'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'atm_profiles' table", "error", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(atm_profiles)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'atm_profiles'", "error", err)
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
				logger.L.Error("Error scanning column info for 'atm_profiles'", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'atm_profiles'", "error", err)
		}
		return
	}

	addColumn := func(name, ddl string) {
		if columnExists[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE atm_profiles ADD COLUMN " + ddl); err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'atm_profiles'", "column", name, "error", err)
			}
		} else if logger.L != nil {
			logger.L.Info("Added column to 'atm_profiles'", "column", name)
		}
	}

	addColumn("platform_switch_date", "platform_switch_date TIMESTAMP")
	addColumn("sales_rep_id", "sales_rep_id INTEGER")
	addColumn("mgmt_bitaccess", "mgmt_bitaccess REAL NOT NULL DEFAULT 0")
}
