package domain

// TicketStatus represents a ticket's lifecycle state
type TicketStatus string

const (
	TicketPurchased TicketStatus = "PURCHASED"
	TicketBoarding  TicketStatus = "BOARDING"
	TicketCompleted TicketStatus = "COMPLETED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// IsFinal returns true when no further transition is possible
func (s TicketStatus) IsFinal() bool {
	return s == TicketCompleted || s == TicketCancelled
}

// RoomStayStatus represents a room stay's lifecycle state
type RoomStayStatus string

const (
	RoomStayCheckedIn  RoomStayStatus = "CHECKED_IN"
	RoomStayCheckedOut RoomStayStatus = "CHECKED_OUT"
	// RoomStayExtended is informational only, extensions keep CHECKED_IN
	RoomStayExtended RoomStayStatus = "EXTENDED"
)

// TransactionType is the direction of a point transaction
type TransactionType string

const (
	TransactionEarn  TransactionType = "EARN"
	TransactionSpend TransactionType = "SPEND"
)

// TransactionStatus represents a point transaction's state
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// TransactionReason explains why points moved
type TransactionReason string

const (
	ReasonSignedUp      TransactionReason = "SIGNED_UP"
	ReasonDiary         TransactionReason = "DIARY"
	ReasonQuestionnaire TransactionReason = "QUESTIONNAIRE"
	ReasonTicket        TransactionReason = "TICKET"
	ReasonExtension     TransactionReason = "EXTENSION"
	ReasonRefund        TransactionReason = "REFUND"
	ReasonEtc           TransactionReason = "ETC"
)

// ReferenceType names the table a point transaction points at
type ReferenceType string

const (
	RefUsers          ReferenceType = "users"
	RefDiaries        ReferenceType = "diaries"
	RefTickets        ReferenceType = "tickets"
	RefQuestionnaires ReferenceType = "questionnaires"
	RefRoomStays      ReferenceType = "room_stays"
)

// Balance is a non-negative point amount
type Balance int64

// NewBalance validates v
func NewBalance(v int64) (Balance, error) {
	if v < 0 {
		return 0, ErrInvalidAmount
	}
	return Balance(v), nil
}

// Add returns b + amount
func (b Balance) Add(amount int64) (Balance, error) {
	if amount < 0 {
		return b, ErrInvalidAmount
	}
	return b + Balance(amount), nil
}

// Deduct returns b - amount. Going below zero is ErrInsufficientBalance.
func (b Balance) Deduct(amount int64) (Balance, error) {
	if amount < 0 {
		return b, ErrInvalidAmount
	}
	if int64(b) < amount {
		return b, ErrInsufficientBalance
	}
	return b - Balance(amount), nil
}

// Int64 returns the raw value
func (b Balance) Int64() int64 {
	return int64(b)
}
