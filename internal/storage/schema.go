package storage

const schema = `
-- The 'state' table is a string key/value store holding the serialized
-- card collection and the aggregate study counters.
CREATE TABLE IF NOT EXISTS state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- The 'sources' table tracks configured deck sources, either a local
-- directory or a git repository of deck files.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned DATETIME
);
`
