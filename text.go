package main

// User-facing copy.
const (
	siteTitle = "Portfolio"

	specPrompt      = "Choose a specialization"
	resumeIntro     = "Download the current resume for the selected specialization."
	resumeButton    = "Download resume (PDF)"
	openPDFButton   = "Open PDF"
	readMoreLink    = "Read more"
	contactHeading  = "Get in touch"
	contactDisabled = "The contact form is not available yet."

	blogTitle      = "Blog"
	blogIntro      = "Longer write-ups about projects, notes and other material."
	fromHomeNotice = "You came here from a link on the home page."
	allTagsLabel   = "All"
	noPostsMessage = "No posts yet."

	notFoundTitle       = "Not found"
	postNotFoundMessage = "There is no post at this address. It may have been renamed or removed."
	pageNotFoundMessage = "There is nothing at this address."
	renderErrorMessage  = "Sorry, this post could not be displayed."

	viewerTitle      = "PDF viewer"
	viewerMissingURL = "No document was given."

	contactSuccess = "Thank you for your message! I'll get back to you soon."
	contactError   = "Sorry, there was an error sending your message. Please try again later."
	contactInvalid = "Please fill in your name, a valid email address and a message."

	invalidCredentials = "Invalid credentials"
	statsLoadError     = "Failed to load statistics"
	visitorsLoadError  = "Failed to load visitors"
)
