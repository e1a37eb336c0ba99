package repository

// Schema definitions for the CEBX database.
// Compatible with both SQLite and PostgreSQL. Timestamps are stored in UTC.

const schemaAccounts = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
`

const schemaShipments = `
CREATE TABLE IF NOT EXISTS shipments (
    id TEXT PRIMARY KEY,
    tracking_number TEXT NOT NULL,
    account_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    mode TEXT NOT NULL,
    origin_country TEXT NOT NULL,
    destination_country TEXT NOT NULL,
    declared_value DOUBLE PRECISION,
    insurance_value DOUBLE PRECISION,
    total_charges DOUBLE PRECISION,
    cost DOUBLE PRECISION,
    agent_id TEXT NOT NULL DEFAULT '',
    origin_branch_id TEXT NOT NULL DEFAULT '',
    destination_branch_id TEXT NOT NULL DEFAULT '',
    broker_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    delivered_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_shipments_account ON shipments(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_shipments_lane ON shipments(origin_country, destination_country, mode, created_at);
CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status, created_at);
`

const schemaShipmentItems = `
CREATE TABLE IF NOT EXISTS shipment_items (
    id TEXT PRIMARY KEY,
    shipment_id TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL DEFAULT 1,
    dangerous_goods INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_shipment_items_shipment ON shipment_items(shipment_id);
`

// schemaFraudScans keeps every scan; the latest per shipment is the current verdict.
const schemaFraudScans = `
CREATE TABLE IF NOT EXISTS fraud_scans (
    id TEXT PRIMARY KEY,
    shipment_id TEXT NOT NULL,
    score DOUBLE PRECISION NOT NULL,
    tier TEXT NOT NULL,
    recommended_action TEXT NOT NULL,
    sub_scores TEXT NOT NULL,
    scanned_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_scans_shipment ON fraud_scans(shipment_id, scanned_at);
CREATE INDEX IF NOT EXISTS idx_fraud_scans_tier ON fraud_scans(tier);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAccounts,
		schemaShipments,
		schemaShipmentItems,
		schemaFraudScans,
	}
}
