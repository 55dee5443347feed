package eightball

// Well-known identifiers for the Magic 8-Ball GATT service.
// A Peripheral advertises EightBallServiceUUID with exactly two
// characteristics: the Central writes its question to QuestionCharUUID and
// receives the answer as a notification on AnswerCharUUID.
const (
	EightBallServiceUUID = "8BA11000-C36C-495A-93FC-0C247A3E6E5F"
	QuestionCharUUID     = "8BA11001-C36C-495A-93FC-0C247A3E6E5F"
	AnswerCharUUID       = "8BA11002-C36C-495A-93FC-0C247A3E6E5F"
)
