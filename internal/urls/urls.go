package urls

// Documentation URLs used in troubleshooting hints

// FHEMWEB is the reference for the FHEMWEB frontend module, including the
// port and allowed-client attributes.
const FHEMWEB = "https://wiki.fhem.de/wiki/FHEMWEB"

// CsrfToken explains the csrfToken attribute and the fwcsrf parameter.
const CsrfToken = "https://wiki.fhem.de/wiki/CsrfToken-HowTo"

// Jsonlist2 documents the jsonlist2 command and its reply format.
const Jsonlist2 = "https://wiki.fhem.de/wiki/Jsonlist2"

// ProjectHome is the psufhem source repository.
const ProjectHome = "https://github.com/muurk/psufhem"
