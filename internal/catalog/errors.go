package catalog

import "fmt"

func ErrTableAlreadyExists(name string) error {
	return fmt.Errorf("catalog: table %q already exists", name)
}

func ErrTableDoesNotExist(name string) error {
	return fmt.Errorf("catalog: table %q does not exist", name)
}
