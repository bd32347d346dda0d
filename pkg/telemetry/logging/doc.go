// Package logging builds the structured logger used across Mercator Meter.
//
// Loggers are plain *slog.Logger values with a JSON or text handler. Records
// logged with a context carrying a request ID (see WithRequestID) get a
// request_id attribute.
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// Components tag their records with a "component" attribute:
//
//	logger = logger.With("component", "sampler")
package logging
