package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the field constraints of a new job.
func (s JobSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return checkSalaryRange(s.SalaryMin, s.SalaryMax)
}

// Validate checks the constraints of the fields that are set.
func (u JobUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return checkSalaryRange(u.SalaryMin, u.SalaryMax)
}

// Validate checks that keyword and location are present.
func (a NewAlert) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func checkSalaryRange(lo, hi *int) error {
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%w: salary_min %d exceeds salary_max %d", ErrValidation, *lo, *hi)
	}
	return nil
}
