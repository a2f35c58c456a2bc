package validation

// Merge folds sources left to right into a new map. For a binding present in
// both operands, errors accumulate without duplicates while warnings are
// replaced by the later operand's; messages the later operand lists as
// fixed are removed from both. Entries present in only one operand are
// copied unchanged.
func Merge(sources ...Validations) Validations {
	out := make(Validations)
	for _, source := range sources {
		for pageName, lv := range source {
			current, ok := out[pageName]
			if !ok {
				out[pageName] = lv.Clone()
				continue
			}
			mergeLayout(current, lv)
		}
	}
	return out
}

func mergeLayout(current, next LayoutValidations) {
	for componentID, cv := range next {
		existing, ok := current[componentID]
		if !ok {
			current[componentID] = cv.Clone()
			continue
		}
		for key, entry := range cv {
			prev, ok := existing[key]
			if !ok {
				existing[key] = entry.clone()
				continue
			}
			existing[key] = mergeBinding(prev, entry)
		}
	}
}

func mergeBinding(prev, next BindingValidation) BindingValidation {
	errors := cloneStrings(prev.Errors)
	for _, message := range next.Errors {
		if !contains(errors, message) {
			errors = append(errors, message)
		}
	}
	return BindingValidation{
		Errors:   removeFixed(errors, next.Fixed),
		Warnings: removeFixed(cloneStrings(next.Warnings), next.Fixed),
	}
}

func removeFixed(messages, fixed []string) []string {
	if len(fixed) == 0 {
		return messages
	}
	var out []string
	for _, message := range messages {
		if !contains(fixed, message) {
			out = append(out, message)
		}
	}
	return out
}
