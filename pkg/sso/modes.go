package sso

// Mode identifies the operator-configured single sign-on mode. A mode names
// the primary provider family and, optionally, the second factor required
// after primary resolution.
type Mode string

const (
	ModeGoogle       Mode = "google"
	ModeGoogleDuo    Mode = "google_duo"
	ModeGoogleYubico Mode = "google_yubico"
	ModeSlack        Mode = "slack"
	ModeSlackDuo     Mode = "slack_duo"
	ModeSlackYubico  Mode = "slack_yubico"
	ModeSAML         Mode = "saml"
	ModeSAMLDuo      Mode = "saml_duo"
	ModeSAMLYubico   Mode = "saml_yubico"
	ModeDuo          Mode = "duo"
	ModeRadiusDuo    Mode = "radius_duo"
)

// Kind tags a pending exchange with the round-trip it belongs to: a primary
// provider family awaiting a broker callback, or a step-up factor awaiting
// redemption.
type Kind string

const (
	KindGoogle Kind = "google"
	KindSlack  Kind = "slack"
	KindSAML   Kind = "saml"
	KindDuo    Kind = "duo"
	KindYubico Kind = "yubico"
)

// DuoFactor selects how the Duo-style factor service challenges the user.
type DuoFactor string

const (
	DuoFactorPush     DuoFactor = "push"
	DuoFactorPhone    DuoFactor = "phone"
	DuoFactorPasscode DuoFactor = "passcode"
)

// Family returns the primary provider kind for the mode, or "" when the
// mode has no broker-initiated primary family (duo, radius_duo).
func (m Mode) Family() Kind {
	switch m {
	case ModeGoogle, ModeGoogleDuo, ModeGoogleYubico:
		return KindGoogle
	case ModeSlack, ModeSlackDuo, ModeSlackYubico:
		return KindSlack
	case ModeSAML, ModeSAMLDuo, ModeSAMLYubico:
		return KindSAML
	}
	return ""
}

// AcceptsRequest reports whether the mode may start a broker handshake
// through the request endpoint.
func (m Mode) AcceptsRequest() bool {
	return m.Family() != ""
}

// RequiresDuo reports whether the mode forces a Duo step-up after primary
// resolution, or is a Duo-only mode.
func (m Mode) RequiresDuo() bool {
	switch m {
	case ModeGoogleDuo, ModeSlackDuo, ModeSAMLDuo, ModeDuo, ModeRadiusDuo:
		return true
	}
	return false
}

// RequiresYubico reports whether the mode forces a hardware-key step-up
// after primary resolution.
func (m Mode) RequiresYubico() bool {
	switch m {
	case ModeGoogleYubico, ModeSlackYubico, ModeSAMLYubico:
		return true
	}
	return false
}

// Valid reports whether the mode is one of the recognized constants.
func (m Mode) Valid() bool {
	switch m {
	case ModeGoogle, ModeGoogleDuo, ModeGoogleYubico,
		ModeSlack, ModeSlackDuo, ModeSlackYubico,
		ModeSAML, ModeSAMLDuo, ModeSAMLYubico,
		ModeDuo, ModeRadiusDuo:
		return true
	}
	return false
}
