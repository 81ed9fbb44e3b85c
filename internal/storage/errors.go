package storage

import "fmt"

func ErrTableAlreadyExists(name string) error {
	return fmt.Errorf("table %q already exists", name)
}

func ErrTableDoesNotExist(name string) error {
	return fmt.Errorf("table %q does not exist", name)
}

func ErrSchemaRequired(name string) error {
	return fmt.Errorf("creating table %q requires a schema", name)
}

func ErrSchemaNotAllowed(name string) error {
	return fmt.Errorf("opening existing table %q must not pass a schema", name)
}

func ErrOneIndexFileMissing(name string) error {
	return fmt.Errorf("table %q has only one of .idx/.dat present", name)
}

func ErrNoPrimaryColumn(name string) error {
	return fmt.Errorf("table %q has no primary column", name)
}

func ErrPrimaryTypeMismatch(name string) error {
	return fmt.Errorf("value type does not match primary column of table %q", name)
}

func ErrNoSuchColumn(name string) error {
	return fmt.Errorf("no column named %q", name)
}

func ErrTablePoisoned(name string) error {
	return fmt.Errorf("table %q is poisoned and refuses further operations", name)
}
