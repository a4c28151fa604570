package types

import "fmt"

// -----------------------------------------------------------------------------
// HelloMessage

// NewEmpty implements types.Message.
func (m HelloMessage) NewEmpty() Message {
	return &HelloMessage{}
}

// Name implements types.Message.
func (HelloMessage) Name() string {
	return "hello"
}

// String implements types.Message.
func (m HelloMessage) String() string {
	return fmt.Sprintf("{hello from party %d, session %s}", m.PartyID, m.Session)
}

// -----------------------------------------------------------------------------
// AuthMessage

// NewEmpty implements types.Message.
func (m AuthMessage) NewEmpty() Message {
	return &AuthMessage{}
}

// Name implements types.Message.
func (AuthMessage) Name() string {
	return "auth"
}

// String implements types.Message.
func (m AuthMessage) String() string {
	return fmt.Sprintf("{auth signature of %d bytes}", len(m.Signature))
}

// -----------------------------------------------------------------------------
// ReadyMessage

// NewEmpty implements types.Message.
func (m ReadyMessage) NewEmpty() Message {
	return &ReadyMessage{}
}

// Name implements types.Message.
func (ReadyMessage) Name() string {
	return "ready"
}

// String implements types.Message.
func (m ReadyMessage) String() string {
	return "{ready}"
}

// -----------------------------------------------------------------------------
// BinCountMessage

// NewEmpty implements types.Message.
func (m BinCountMessage) NewEmpty() Message {
	return &BinCountMessage{}
}

// Name implements types.Message.
func (BinCountMessage) Name() string {
	return "bincount"
}

// String implements types.Message.
func (m BinCountMessage) String() string {
	return fmt.Sprintf("{%d bins}", m.Bins)
}

// -----------------------------------------------------------------------------
// OpenMessage

// NewEmpty implements types.Message.
func (m OpenMessage) NewEmpty() Message {
	return &OpenMessage{}
}

// Name implements types.Message.
func (OpenMessage) Name() string {
	return "open"
}

// String implements types.Message.
func (m OpenMessage) String() string {
	return fmt.Sprintf("{open %d shares of domain %d}", len(m.Values), m.Domain)
}

// -----------------------------------------------------------------------------
// BeaverMessage

// NewEmpty implements types.Message.
func (m BeaverMessage) NewEmpty() Message {
	return &BeaverMessage{}
}

// Name implements types.Message.
func (BeaverMessage) Name() string {
	return "beaver"
}

// String implements types.Message.
func (m BeaverMessage) String() string {
	return fmt.Sprintf("{beaver openings for %d gates}", len(m.D))
}

// -----------------------------------------------------------------------------
// BaseOTSetupMessage

// NewEmpty implements types.Message.
func (m BaseOTSetupMessage) NewEmpty() Message {
	return &BaseOTSetupMessage{}
}

// Name implements types.Message.
func (BaseOTSetupMessage) Name() string {
	return "basesetup"
}

// String implements types.Message.
func (m BaseOTSetupMessage) String() string {
	return "{base ot setup}"
}

// -----------------------------------------------------------------------------
// BaseOTChoiceMessage

// NewEmpty implements types.Message.
func (m BaseOTChoiceMessage) NewEmpty() Message {
	return &BaseOTChoiceMessage{}
}

// Name implements types.Message.
func (BaseOTChoiceMessage) Name() string {
	return "basechoice"
}

// String implements types.Message.
func (m BaseOTChoiceMessage) String() string {
	return fmt.Sprintf("{base ot choices: %d}", len(m.Points))
}

// -----------------------------------------------------------------------------
// OTExtendMessage

// NewEmpty implements types.Message.
func (m OTExtendMessage) NewEmpty() Message {
	return &OTExtendMessage{}
}

// Name implements types.Message.
func (OTExtendMessage) Name() string {
	return "otextend"
}

// String implements types.Message.
func (m OTExtendMessage) String() string {
	size := 0
	if len(m.Columns) > 0 {
		size = len(m.Columns[0]) * 8
	}
	return fmt.Sprintf("{ot extension of %d columns x %d bits}", len(m.Columns), size)
}

// -----------------------------------------------------------------------------
// OTCorrectMessage

// NewEmpty implements types.Message.
func (m OTCorrectMessage) NewEmpty() Message {
	return &OTCorrectMessage{}
}

// Name implements types.Message.
func (OTCorrectMessage) Name() string {
	return "otcorrect"
}

// String implements types.Message.
func (m OTCorrectMessage) String() string {
	return fmt.Sprintf("{ot corrections: %d bits}", len(m.Corrections)*8)
}
