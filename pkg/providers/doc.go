// Package providers contains the HTTP clients behind the orchestrator's
// external collaborator interfaces: the identity broker that hosts the
// provider handshakes, the Duo-style push/passcode factor service, the
// YubiCloud-style OTP verifier, and the federated group-membership
// verifier. Every client carries a bounded timeout and an
// otelhttp-instrumented transport; failures map onto the pkg/sso error
// taxonomy.
package providers
