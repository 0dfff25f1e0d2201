// Package cdn looks up podspecs on the CocoaPods CDN.
//
// The CDN shards the Specs repository by the MD5 digest of the pod name: the
// first three hex characters become three directory levels. For "Alamofire"
// (md5 da2...) the version index is
//
//	https://cdn.cocoapods.org/all_pods_versions_d_a_2.txt
//
// and the 5.9.1 podspec is
//
//	https://cdn.cocoapods.org/Specs/d/a/2/Alamofire/5.9.1/Alamofire.podspec.json
//
// Index files list one pod per line as "Name/version/version/...". When no
// version is requested, [Client.Lookup] picks the highest stable release.
package cdn
