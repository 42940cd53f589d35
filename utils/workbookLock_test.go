package utils

import (
	"context"
	"errors"
	"testing"
)

func TestWorkbookLockWithoutRedis(t *testing.T) {
	ctx := context.Background()

	release, err := WorkbookLock(ctx, "data/Tyre Stock.xlsx", "utils", "TestWorkbookLockWithoutRedis")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// same workbook is busy while held
	if _, err := WorkbookLock(ctx, "data/Tyre Stock.xlsx", "utils", "TestWorkbookLockWithoutRedis"); !errors.Is(err, ErrWorkbookBusy) {
		t.Fatalf("second acquire err = %v, want ErrWorkbookBusy", err)
	}

	// a different workbook is unaffected
	otherRelease, err := WorkbookLock(ctx, "data/Invoice_2025_01.xlsx", "utils", "TestWorkbookLockWithoutRedis")
	if err != nil {
		t.Fatalf("other path acquire: %v", err)
	}
	otherRelease()

	release()
	release, err = WorkbookLock(ctx, "data/Tyre Stock.xlsx", "utils", "TestWorkbookLockWithoutRedis")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release()
}
