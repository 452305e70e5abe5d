package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_visitor_preferences",
			Up: `
				-- Preferências de interface por visitante (idioma, tema)
				CREATE TABLE visitor_preferences (
					visitor_id VARCHAR(64) NOT NULL,
					key VARCHAR(32) NOT NULL,
					value VARCHAR(64) NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP DEFAULT NOW(),
					PRIMARY KEY (visitor_id, key)
				);
			`,
			Down: `
				DROP TABLE IF EXISTS visitor_preferences;
			`,
		},
		{
			Version: 2,
			Name:    "index_visitor_preferences_expiry",
			Up: `
				CREATE INDEX idx_visitor_preferences_expires_at ON visitor_preferences (expires_at);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_visitor_preferences_expires_at;
			`,
		},
	}
}
