package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

// Feature: catalog-import, Pending migrations are executed in order
func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_admin_users_table.sql",
		"00002_create_products_table.sql",
		"00003_create_product_images_table.sql",
		"00004_create_updated_at_trigger.sql",
		"00005_add_image_backfill_tracking.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		contentStr := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"admin_users":    "00001_create_admin_users_table.sql",
		"products":       "00002_create_products_table.sql",
		"product_images": "00003_create_product_images_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		contentStr := readMigration(t, migrationFile)

		if !strings.Contains(contentStr, "CREATE TABLE IF NOT EXISTS "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(contentStr, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableHasRequiredColumns(t *testing.T) {
	contentStr := readMigration(t, "00002_create_products_table.sql")

	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"title VARCHAR",
		"description TEXT",
		"price NUMERIC(10, 2)",
		"condition VARCHAR",
		"external_id VARCHAR",
		"created_at TIMESTAMP",
		"updated_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Products table missing required column definition: %s", column)
		}
	}

	// the same listing may legitimately appear in several spreadsheets
	if strings.Contains(contentStr, "UNIQUE") {
		t.Error("external_id must not carry a unique constraint")
	}
	if !strings.Contains(contentStr, "idx_products_external_id") {
		t.Error("Products table missing external_id index")
	}
}

func TestProductsTableHasConditionConstraint(t *testing.T) {
	contentStr := readMigration(t, "00002_create_products_table.sql")

	for _, condition := range []string{"'New'", "'Like New'", "'Very Good'", "'Good'", "'Acceptable'", "'Used'"} {
		if !strings.Contains(contentStr, condition) {
			t.Errorf("Products condition constraint missing value: %s", condition)
		}
	}
}

func TestProductImagesTableCascadesOnDelete(t *testing.T) {
	contentStr := readMigration(t, "00003_create_product_images_table.sql")

	for _, column := range []string{"path VARCHAR", "is_main BOOLEAN", "position INTEGER"} {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Product images table missing column definition: %s", column)
		}
	}

	if !strings.Contains(contentStr, "FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE") {
		t.Error("Product images table missing cascading foreign key to products")
	}
}

func TestRunMigrations_MissingDirectory(t *testing.T) {
	err := RunMigrations(context.Background(), nil, filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "migrations directory") {
		t.Fatalf("expected missing directory error, got %v", err)
	}

	if _, err := MigrationStatus(context.Background(), nil, filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected status to fail for a missing directory")
	}
}

func TestBackfillTrackingMigration(t *testing.T) {
	contentStr := readMigration(t, "00005_add_image_backfill_tracking.sql")

	for _, want := range []string{
		"ADD COLUMN IF NOT EXISTS images_checked_at TIMESTAMP NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_product_images_one_main ON product_images (product_id) WHERE is_main",
		"DROP COLUMN IF EXISTS images_checked_at",
	} {
		if !strings.Contains(contentStr, want) {
			t.Errorf("migration is missing %q", want)
		}
	}
}
