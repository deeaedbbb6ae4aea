package observability

import "github.com/regenpgc/trialbase/internal/logger"

var log = logger.Global().Module("observability")
