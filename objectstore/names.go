package objectstore

import (
	"fmt"
	"sort"

	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/validation"
)

const (
	maxContainerName = 256
	maxObjectName    = 1024
)

func validateContainer(v *validation.Validator, field, name string) *validation.Validator {
	return v.Required(field, name).
		MaxBytes(field, name, maxContainerName).
		Excludes(field, name, "/")
}

func validateObject(v *validation.Validator, field, name string) *validation.Validator {
	return v.Required(field, name).MaxBytes(field, name, maxObjectName)
}

func validateMetadata(v *validation.Validator, meta Metadata, prefix string) *validation.Validator {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Check(k != "" && transport.ValidHeaderName(prefix+k), "metadata", fmt.Sprintf("invalid key %q", k))
	}
	return v
}

func checkContainer(name string) error {
	return validateContainer(validation.New(), "container", name).Validate()
}

func checkObject(container, name string) error {
	v := validateContainer(validation.New(), "container", container)
	return validateObject(v, "object", name).Validate()
}
