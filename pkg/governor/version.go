package governor

const Version = "0.1.0"
