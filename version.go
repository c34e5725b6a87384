package replsup

// Version is the current version of the go-replsup library
const Version = "1.0.0"
