package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(128) PRIMARY KEY,
    plan VARCHAR(16) NOT NULL DEFAULT 'free',
    free_usage INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS creations (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    prompt TEXT NOT NULL,
    content MEDIUMTEXT NOT NULL,
    type VARCHAR(32) NOT NULL,
    publish TINYINT(1) NOT NULL DEFAULT 0,
    likes JSON NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_creations_user (user_id, created_at),
    INDEX idx_creations_published (publish, type, created_at)
)`,
}
