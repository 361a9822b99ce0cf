package domain

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	if err := ValidateDate("2024-02-29"); err != nil {
		t.Errorf("ValidateDate() error = %v", err)
	}
	if err := ValidateDate("2023-02-29"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ValidateDate(non-leap) error = %v", err)
	}
	if err := ValidateClock("23:59"); err != nil {
		t.Errorf("ValidateClock() error = %v", err)
	}
	if err := ValidateClock("24:00"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("ValidateClock(24:00) error = %v", err)
	}
	if err := ValidateClock("7:30"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("ValidateClock(7:30) error = %v", err)
	}
}

func TestAddDays(t *testing.T) {
	if got := AddDays("2024-02-28", 2); got != "2024-03-01" {
		t.Errorf("AddDays() = %s", got)
	}
	if got := AddDays("2024-01-01", -1); got != "2023-12-31" {
		t.Errorf("AddDays(-1) = %s", got)
	}
	if got := AddDays("bad", 1); got != "bad" {
		t.Errorf("AddDays(bad) = %s", got)
	}
}

func TestToMinutes(t *testing.T) {
	if ToMinutes("") != 0 || ToMinutes("01:30") != 90 || ToMinutes("23:59") != 1439 {
		t.Error("ToMinutes() returned unexpected values")
	}
}
