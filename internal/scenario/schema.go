package scenario

// Store DDL. All child tables cascade-delete with their scenario; flights
// reference airports and aircraft by foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	sid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	crew_turnaround_time INTEGER NOT NULL,
	aircraft_turnaround_time INTEGER NOT NULL,
	max_delay INTEGER NOT NULL,
	aircraft_selector TEXT,
	crew_selector TEXT,
	wait_for_deadheaders INTEGER NOT NULL DEFAULT 0,
	aircraft_reassign_tolerance INTEGER NOT NULL DEFAULT 0,
	crew_reassign_tolerance INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS airports (
	code TEXT NOT NULL,
	max_dep_per_hour INTEGER NOT NULL,
	max_arr_per_hour INTEGER NOT NULL,
	latitude REAL,
	longitude REAL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE,
	PRIMARY KEY (code, sid)
);

CREATE TABLE IF NOT EXISTS aircraft (
	tail TEXT NOT NULL,
	location TEXT NOT NULL,
	typename TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE,
	PRIMARY KEY (tail, sid),
	FOREIGN KEY (location, sid) REFERENCES airports(code, sid)
);

CREATE TABLE IF NOT EXISTS crew (
	id INTEGER NOT NULL,
	location TEXT NOT NULL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE,
	PRIMARY KEY (id, sid),
	FOREIGN KEY (location, sid) REFERENCES airports(code, sid)
);

CREATE TABLE IF NOT EXISTS flights (
	id INTEGER NOT NULL,
	flight_number TEXT,
	aircraft TEXT NOT NULL,
	origin TEXT NOT NULL,
	dest TEXT NOT NULL,
	pilot INTEGER,
	sched_depart TEXT NOT NULL,
	sched_arrive TEXT NOT NULL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE,
	PRIMARY KEY (id, sid),
	FOREIGN KEY (aircraft, sid) REFERENCES aircraft(tail, sid),
	FOREIGN KEY (origin, sid) REFERENCES airports(code, sid),
	FOREIGN KEY (dest, sid) REFERENCES airports(code, sid)
);

CREATE TABLE IF NOT EXISTS demand (
	path TEXT NOT NULL,
	amount INTEGER NOT NULL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS disruptions (
	airport TEXT NOT NULL,
	start TEXT NOT NULL,
	"end" TEXT NOT NULL,
	hourly_rate INTEGER NOT NULL,
	type TEXT NOT NULL,
	reason TEXT,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS deadheaders (
	id INTEGER NOT NULL,
	sid TEXT NOT NULL REFERENCES scenarios(sid) ON DELETE CASCADE,
	fid INTEGER NOT NULL,
	FOREIGN KEY (id, sid) REFERENCES crew(id, sid),
	FOREIGN KEY (fid, sid) REFERENCES flights(id, sid)
);

CREATE INDEX IF NOT EXISTS idx_flights_sid ON flights(sid);
CREATE INDEX IF NOT EXISTS idx_disruptions_sid ON disruptions(sid);
CREATE INDEX IF NOT EXISTS idx_deadheaders_fid ON deadheaders(sid, fid);
`
