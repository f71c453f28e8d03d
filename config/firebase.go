package config

// FirebaseServiceAccountKeyPath points at the JSON service-account key used for
// FCM pushes. Override with the FIREBASE_CREDENTIALS env var in deployment.
var FirebaseServiceAccountKeyPath = "config/firebase-service-account.json"
