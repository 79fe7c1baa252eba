package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"

	"mvr-docstatus/lib/statepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct describes where a database lives. a remote libsql `url` takes
// precedence over a local sqlite `file`.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		return config.openRemote()
	}
	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	return config.openFile()
}

func (config Struct) openRemote() (*sql.DB, error) {
	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	target := config.Url
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	return sql.Open("libsql", target)
}

func (config Struct) openFile() (*sql.DB, error) {
	if config.File == ":memory:" {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, err
		}
		// every connection would get its own empty database otherwise
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dbpath, err := statepath.Resolve(config.File)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(dbpath)
	if os.IsNotExist(statErr) {
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
