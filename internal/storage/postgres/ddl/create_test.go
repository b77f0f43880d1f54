package ddl

import (
	"strings"
	"testing"

	gddl "imatload/internal/ddl"
)

/*
TestBuildCreateTableSQL verifies rendering of a composite-key table: quoted
identifiers, NOT NULL on primary-key columns, sorted PRIMARY KEY clause, and
the IF NOT EXISTS form.
*/
func TestBuildCreateTableSQL(t *testing.T) {
	def := gddl.TableDef{
		FQN: "raw.imat_images",
		Columns: []gddl.ColumnDef{
			{Name: "split", SQLType: "TEXT", PrimaryKey: true},
			{Name: "image_id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "url", SQLType: "TEXT"},
		},
	}

	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "raw"."imat_images"`,
		`"split" TEXT NOT NULL`,
		`"image_id" BIGINT NOT NULL`,
		`"url" TEXT NOT NULL`,
		`PRIMARY KEY ("image_id", "split")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("statement missing %q:\n%s", want, sql)
		}
	}
}

/*
TestBuildCreateTableSQL_Validation covers the rejection paths.
*/
func TestBuildCreateTableSQL_Validation(t *testing.T) {
	cases := []struct {
		name string
		def  gddl.TableDef
	}{
		{"empty FQN", gddl.TableDef{Columns: []gddl.ColumnDef{{Name: "a", SQLType: "TEXT"}}}},
		{"no columns", gddl.TableDef{FQN: "t"}},
		{"empty column name", gddl.TableDef{FQN: "t", Columns: []gddl.ColumnDef{{SQLType: "TEXT"}}}},
		{"missing type", gddl.TableDef{FQN: "t", Columns: []gddl.ColumnDef{{Name: "a"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildCreateTableSQL(tc.def); err == nil {
				t.Fatal("want error, got nil")
			}
		})
	}
}

/*
TestBuildCreateIndexSQL verifies btree default, explicit GIN method, and the
IF NOT EXISTS form.
*/
func TestBuildCreateIndexSQL(t *testing.T) {
	sql, err := BuildCreateIndexSQL("raw.imat_images", gddl.IndexDef{
		Name:    "imat_images_image_id_idx",
		Columns: []string{"image_id"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `CREATE INDEX IF NOT EXISTS "imat_images_image_id_idx" ON "raw"."imat_images" ("image_id");`
	if sql != want {
		t.Errorf("btree index:\n got %s\nwant %s", sql, want)
	}

	sql, err = BuildCreateIndexSQL("raw.imat_annotations", gddl.IndexDef{
		Name:    "imat_annotations_label_ids_gin",
		Columns: []string{"label_ids"},
		Method:  "gin",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, `USING GIN ("label_ids")`) {
		t.Errorf("gin index missing USING GIN: %s", sql)
	}

	if _, err := BuildCreateIndexSQL("t", gddl.IndexDef{Columns: []string{"a"}}); err == nil {
		t.Error("nameless index accepted")
	}
	if _, err := BuildCreateIndexSQL("t", gddl.IndexDef{Name: "i"}); err == nil {
		t.Error("columnless index accepted")
	}
}

/*
TestBuildCreateSchemaSQL covers schema creation rendering.
*/
func TestBuildCreateSchemaSQL(t *testing.T) {
	sql, err := BuildCreateSchemaSQL("raw")
	if err != nil {
		t.Fatal(err)
	}
	if sql != `CREATE SCHEMA IF NOT EXISTS "raw";` {
		t.Errorf("got %s", sql)
	}
	if _, err := BuildCreateSchemaSQL("  "); err == nil {
		t.Error("blank schema accepted")
	}
}
