package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/tyrestock_backend/config"
	"github.com/bsm/redislock"
)

var ErrWorkbookBusy = errors.New("another operation is running against this workbook")

// localWorkbookLocks serializes workbook operations within this process
// when no redis locker is configured.
var localWorkbookLocks sync.Map // workbookPath -> *sync.Mutex

// WorkbookLock obtains an exclusive lock for one workbook file. Every import
// or export is one exclusive operation per workbook path; a concurrent
// operation against the same file is rejected, not interleaved.
//
// The returned release func must be called when the operation finishes.
func WorkbookLock(ctx context.Context, workbookPath string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Single-instance deployment without redis: an in-process mutex
		// per path still keeps operations on one workbook exclusive.
		mu, _ := localWorkbookLocks.LoadOrStore(workbookPath, &sync.Mutex{})
		m := mu.(*sync.Mutex)
		if !m.TryLock() {
			config.LogError(logger, moduleName, functionName, "workbook already locked", workbookPath, ErrWorkbookBusy)
			return nil, ErrWorkbookBusy
		}
		return m.Unlock, nil
	}

	lockKey := fmt.Sprintf("workbook:%s", workbookPath)
	lock, err := locker.Obtain(ctx, lockKey, 2*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "workbook already locked", workbookPath, err)
		return nil, ErrWorkbookBusy
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "error obtaining workbook lock", workbookPath, err)
		return nil, err
	}

	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
