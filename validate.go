package configbind

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yanizio/configbind/metadata"
	"github.com/yanizio/configbind/problems"
)

// go-playground/validator's Validate is not safe for unsynchronized
// concurrent struct registration, and the binding engine may be
// invoked from many goroutines at once, so every call into it goes
// through this single guarded instance rather than one per Factory.
var (
	validatorMu       sync.Mutex
	validatorInstance = validator.New(validator.WithRequiredStructEnabled())
)

func validateStruct(instance any) []validator.FieldError {
	validatorMu.Lock()
	defer validatorMu.Unlock()

	err := validatorInstance.Struct(instance)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]validator.FieldError, len(verrs))
	for i, v := range verrs {
		out[i] = v
	}
	return out
}

// validateConstraints runs struct-tag validation (`validate:"..."`) on
// instance and turns every violation into an error keyed by the
// configuration property name the failing field is bound to, falling
// back to the type-qualified field name when the field isn't part of the
// attribute contract (e.g. a validator dive into a nested value).
func validateConstraints(instance any, meta *metadata.ConfigurationMetadata, prefix string, probs *problems.Problems) {
	for _, v := range validateStruct(instance) {
		attrName := v.StructField()
		if attr, ok := meta.Attributes[attrName]; ok && attr.Operative != nil {
			probs.AddError("Invalid configuration property %s%s: %s", prefix, attr.Operative.PropertyName, v.Error())
			continue
		}
		probs.AddError("Invalid configuration value for %s.%s: %s", meta.Type, attrName, v.Error())
	}
}
