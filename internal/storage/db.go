// Package storage persists the entity and transaction graph in sqlite. The
// schema mirrors the external store this engine populates; ownership of the
// schema is outside this module.
package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cosaflow/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS entity (
  entityid INTEGER PRIMARY KEY,
  entityname TEXT,
  entitycontactmail TEXT,
  entitylatitude REAL,
  entitylongitude REAL,
  entityphonenumber TEXT,
  entitymobilenumber TEXT,
  entityaddress TEXT,
  entitycreateddate TEXT,
  entitycreateduser TEXT,
  entitylastmodifieddate TEXT,
  entitylastmodifieduser TEXT,
  countryid INTEGER,
  entitystateprovince TEXT,
  entityenabled INTEGER,
  entityduplicated INTEGER,
  entityzipcode TEXT
);
CREATE INDEX IF NOT EXISTS idx_entity_name ON entity(entityname);

CREATE TABLE IF NOT EXISTS country (
  countryid INTEGER PRIMARY KEY AUTOINCREMENT,
  countryname TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS engagement (
  engagementid INTEGER PRIMARY KEY,
  engagementname TEXT,
  clientid INTEGER
);

CREATE TABLE IF NOT EXISTS engagemententity (
  engagementid INTEGER NOT NULL,
  entityid INTEGER NOT NULL,
  PRIMARY KEY (engagementid, entityid),
  FOREIGN KEY(entityid) REFERENCES entity(entityid)
);

CREATE TABLE IF NOT EXISTS entityclient (
  entityclientid TEXT PRIMARY KEY,
  entityid INTEGER NOT NULL,
  clientid INTEGER NOT NULL,
  FOREIGN KEY(entityid) REFERENCES entity(entityid)
);

CREATE TABLE IF NOT EXISTS saletransaction (
  clientid INTEGER NOT NULL,
  saletransactionid INTEGER NOT NULL,
  saletransactionentityfromid INTEGER,
  saletransactionentitytoid INTEGER,
  engagementid INTEGER,
  saletransactioncreateddate TEXT,
  saletransactioncreateduser TEXT,
  saletransactionlastmodifieddat TEXT,
  saletransactionlastmodifieduse TEXT,
  saletransactionparentclientid INTEGER,
  saletransactionparentid INTEGER,
  PRIMARY KEY (clientid, saletransactionid)
);

CREATE TABLE IF NOT EXISTS saletransactionparam (
  clientid INTEGER NOT NULL,
  saletransactionid INTEGER NOT NULL,
  cosaparamid INTEGER NOT NULL,
  saletransactionparamvalue TEXT,
  PRIMARY KEY (clientid, saletransactionid, cosaparamid)
);

CREATE TABLE IF NOT EXISTS cosaparam (
  cosaparamid INTEGER PRIMARY KEY AUTOINCREMENT,
  cosaparamsubject TEXT,
  cosaparamname TEXT NOT NULL
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) FindEntityIDByName(name string) (*int64, error) {
	var id int64
	err := d.conn.QueryRow(`SELECT entityid FROM entity WHERE entityname = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (d *DB) CountEntitiesByName(name string) (int, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM entity WHERE entityname = ?`, name).Scan(&count)
	return count, err
}

// CreateEntity allocates the next entity id as max+1, inserts the entity and
// its engagement and client membership links in one short-lived transaction.
// The read-then-write allocation is not safe against concurrent writers.
func (d *DB) CreateEntity(e internal.EntityRecord, engagementID, clientID int64) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var maxID int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(entityid), 0) FROM entity`).Scan(&maxID); err != nil {
		return 0, err
	}
	id := maxID + 1

	_, err = tx.Exec(`
INSERT INTO entity (
  entityid, entityname, entitycontactmail, entitylatitude, entitylongitude,
  entityphonenumber, entitymobilenumber, entityaddress,
  entitycreateddate, entitycreateduser, entitylastmodifieddate, entitylastmodifieduser,
  countryid, entitystateprovince, entityenabled, entityduplicated, entityzipcode
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, e.Name, e.ContactMail, e.Latitude, e.Longitude,
		e.PhoneNumber, e.MobileNumber, e.Address,
		e.CreatedDate.UTC().Format("2006-01-02T15:04:05Z"), e.CreatedUser,
		e.LastModifiedDate.UTC().Format("2006-01-02T15:04:05Z"), e.LastModifiedUser,
		e.CountryID, e.StateProvince, e.Enabled, e.Duplicated, e.ZipCode)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`INSERT INTO engagemententity (engagementid, entityid) VALUES (?, ?)`, engagementID, id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`INSERT INTO entityclient (entityclientid, entityid, clientid) VALUES (?, ?, ?)`,
		uuid.NewString(), id, clientID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) FindCountryIDByName(name string) (*int64, error) {
	var id int64
	err := d.conn.QueryRow(`SELECT countryid FROM country WHERE countryname = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (d *DB) InsertCountry(name string) (int64, error) {
	result, err := d.conn.Exec(`INSERT INTO country (countryname) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) FindParamIDByName(name string) (*int64, error) {
	var id int64
	err := d.conn.QueryRow(`SELECT cosaparamid FROM cosaparam WHERE cosaparamname = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (d *DB) ListParams() ([]internal.ParamRecord, error) {
	rows, err := d.conn.Query(`SELECT cosaparamid, cosaparamname FROM cosaparam`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ParamRecord
	for rows.Next() {
		var p internal.ParamRecord
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) InsertParam(name string) (int64, error) {
	result, err := d.conn.Exec(`INSERT INTO cosaparam (cosaparamname) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CreateTransaction allocates the next transaction id scoped to the client
// and inserts the transaction with its parameters in one unit of work. Each
// call is independent; a failure abandons only this transaction.
func (d *DB) CreateTransaction(t internal.TransactionRecord, params []internal.ParamValue) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var maxID int64
	err = tx.QueryRow(`SELECT COALESCE(MAX(saletransactionid), 0) FROM saletransaction WHERE clientid = ?`, t.ClientID).Scan(&maxID)
	if err != nil {
		return 0, err
	}
	id := maxID + 1

	_, err = tx.Exec(`
INSERT INTO saletransaction (
  clientid, saletransactionid, saletransactionentityfromid, saletransactionentitytoid,
  engagementid, saletransactioncreateddate, saletransactioncreateduser,
  saletransactionlastmodifieddat, saletransactionlastmodifieduse,
  saletransactionparentclientid, saletransactionparentid
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)
`, t.ClientID, id, t.FromEntityID, t.ToEntityID, t.EngagementID,
		t.CreatedDate.UTC().Format("2006-01-02T15:04:05Z"), t.CreatedUser,
		t.LastModifiedDate.UTC().Format("2006-01-02T15:04:05Z"), t.LastModifiedUser)
	if err != nil {
		return 0, err
	}

	for _, p := range params {
		_, err := tx.Exec(`
INSERT INTO saletransactionparam (clientid, saletransactionid, cosaparamid, saletransactionparamvalue)
VALUES (?, ?, ?, ?)
`, t.ClientID, id, p.ParamID, p.Value)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) CountTransactions(clientID int64) (int, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM saletransaction WHERE clientid = ?`, clientID).Scan(&count)
	return count, err
}

func (d *DB) TransactionParams(clientID, transactionID int64) ([]internal.ParamValue, error) {
	rows, err := d.conn.Query(`
SELECT cosaparamid, saletransactionparamvalue
FROM saletransactionparam
WHERE clientid = ? AND saletransactionid = ?
ORDER BY cosaparamid
`, clientID, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ParamValue
	for rows.Next() {
		var p internal.ParamValue
		if err := rows.Scan(&p.ParamID, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
