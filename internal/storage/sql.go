package storage

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    element_id TEXT NOT NULL,
    manager    TEXT,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS readings (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id         INTEGER NOT NULL REFERENCES runs (id),
    sector_carrier TEXT NOT NULL,
    cell           TEXT NOT NULL,
    frequency_tag  TEXT NOT NULL DEFAULT '',
    report         INTEGER NOT NULL,
    prb            INTEGER NOT NULL,
    raw_power      INTEGER NOT NULL,
    power_dbm      REAL,
    branch         TEXT NOT NULL,
    port           TEXT NOT NULL,
    rru            TEXT NOT NULL,
    num_samples    INTEGER NOT NULL
);
`

const initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_readings_run ON readings (run_id);
CREATE INDEX IF NOT EXISTS idx_readings_chain ON readings (run_id, sector_carrier, branch, port);
`

const (
	insertRunSQL = `
INSERT INTO runs (
                  started_at,
                  element_id,
                  manager,
                  config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectRunsSQL = `
SELECT
    id,
    started_at,
    element_id,
    manager,
    config
FROM runs
ORDER BY started_at, id`

	insertReadingSQL = `
INSERT INTO readings (run_id,
                      sector_carrier,
                      cell,
                      frequency_tag,
                      report,
                      prb,
                      raw_power,
                      power_dbm,
                      branch,
                      port,
                      rru,
                      num_samples)
VALUES `

	selectReadingsSQL = `
SELECT
    id,
    run_id,
    sector_carrier,
    cell,
    frequency_tag,
    report,
    prb,
    raw_power,
    power_dbm,
    branch,
    port,
    rru,
    num_samples
FROM readings
WHERE
    run_id = ?
ORDER BY sector_carrier, branch, port, prb`
)
