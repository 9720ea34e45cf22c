// Package logging configures the process-wide log/slog logger.
//
// # Usage
//
//	logger, err := logging.Setup(logging.ConfigFrom(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.Info("server starting", "addr", cfg.Server.ListenAddress)
//
// Components derive their own logger with a component attribute:
//
//	logger := slog.Default().With("component", "billing")
//
// # Request context
//
// Middleware stores the request id, the authenticated key prefix and the
// plan in the request context. Any record logged with that context
// (logger.InfoContext(ctx, ...)) carries them as attributes.
//
// # Redaction
//
// When RedactKeys is set, string attributes are scanned before encoding:
//
//   - bt_sk_ab12cd34.<secret> becomes bt_sk_ab12cd34.***
//   - whsec_... becomes whsec_***
//   - sk_live_... and sk_test_... become sk_live_*** and sk_test_***
//   - values logged under keys such as "secret", "salt" or "api_key" are
//     replaced entirely
package logging
