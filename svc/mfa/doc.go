// Package mfa implements second-factor verification for principals that have
// already passed primary authentication.
//
// A principal enrolls factors (TOTP, SMS, EMAIL) that start PENDING and become
// ACTIVE once a code is confirmed. The first ACTIVE factor is primary, and
// Verify only ever checks the primary factor. Backup codes are regenerated on
// every activation and can stand in for the primary factor when it is a
// BACKUP_CODE factor or through ConsumeBackupCode.
//
// TOTP factors lock after a configurable number of consecutive failures.
// SMS and EMAIL codes live in a CodeCache for a short TTL and are consumed by an
// atomic compare-and-delete.
//
//	svc := mfa.NewService(store, mfa.NewRedisCodeCache(storage), keys,
//		mfa.WithLogger(log),
//		mfa.WithLedger(ledger),
//		mfa.WithSender(mfa.ChannelEmail, mfa.NewEmailSender(mailer, "Acme", "")),
//	)
//	ok, err := svc.Verify(ctx, principalID, code, clientIP)
//
// Every Verify outcome other than the pass-through of a principal without
// factors is appended to the Ledger. Use Reason to map an error to the recorded
// failure reason.
package mfa
